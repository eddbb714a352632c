package domain

// VoteType is an anonymous helpfulness vote. Votes are independent of
// likes and dislikes and are not deduplicated per user.
type VoteType string

const (
	VoteHelpful    VoteType = "helpful"
	VoteNotHelpful VoteType = "not-helpful"
)

// ParseVoteType rejects anything other than the two known votes.
func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case VoteHelpful, VoteNotHelpful:
		return VoteType(s), nil
	default:
		return "", InvalidVoteType(s)
	}
}

// VoteTally is the pair of helpfulness counters after a vote.
type VoteTally struct {
	HelpfulCount    int `json:"helpful_count"`
	NotHelpfulCount int `json:"not_helpful_count"`
}
