package domain

import (
	"fmt"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
)

// Error codes returned to clients. They refine the generic AppError codes.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeReviewNotFound  = "REVIEW_NOT_FOUND"
	CodeCommentNotFound = "COMMENT_NOT_FOUND"
	CodeParentNotFound  = "PARENT_NOT_FOUND"
	CodeDuplicateReview = "DUPLICATE_REVIEW"
	CodeNotAuthorized   = "NOT_AUTHORIZED"
	CodeInvalidVoteType = "INVALID_VOTE_TYPE"
	CodeEmptyText       = "EMPTY_TEXT"
)

// ValidationError reports one or more invalid fields.
func ValidationError(message string, fields map[string]string) *apperrors.AppError {
	return apperrors.Validation(message, fields)
}

// ReviewNotFound is returned when no review has the given id.
func ReviewNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("review", id).WithCode(CodeReviewNotFound)
}

// CommentNotFound is returned when the review has no such comment.
func CommentNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("comment", id).WithCode(CodeCommentNotFound)
}

// ParentNotFound is returned when the catalog item does not exist.
func ParentNotFound(kind ItemKind, id string) *apperrors.AppError {
	return apperrors.NotFound(kind.Label(), id).WithCode(CodeParentNotFound)
}

// DuplicateReview is returned when the author already reviewed the item.
func DuplicateReview(kind ItemKind, itemID string) *apperrors.AppError {
	err := apperrors.AlreadyExists("review", kind.String()+"_id", itemID).WithCode(CodeDuplicateReview)
	err.Message = fmt.Sprintf("you have already reviewed this %s", kind.Label())
	return err
}

// NotAuthorized is returned when a non-owner, non-admin attempts a mutation.
func NotAuthorized(action string) *apperrors.AppError {
	return apperrors.Forbidden(fmt.Sprintf("not authorized to %s", action)).WithCode(CodeNotAuthorized)
}

// InvalidVoteType is returned for votes other than helpful / not-helpful.
func InvalidVoteType(v string) *apperrors.AppError {
	err := apperrors.InvalidInput(fmt.Sprintf("invalid vote type %q", v)).WithCode(CodeInvalidVoteType)
	err.Fields = map[string]string{"vote_type": "must be helpful or not-helpful"}
	return err
}

// EmptyText is returned for a blank comment.
func EmptyText() *apperrors.AppError {
	err := apperrors.InvalidInput("comment text is required").WithCode(CodeEmptyText)
	err.Fields = map[string]string{"text": "is required"}
	return err
}
