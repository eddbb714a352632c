// Package main seeds a local review stack with catalog rows and sample
// reviews. Catalog rows go straight into postgres because the catalog is
// owned elsewhere; reviews go through the running API so the aggregate is
// maintained the same way as in production.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/auth"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/logger"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/config"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type itemDef struct {
	kind  domain.ItemKind
	id    string
	title string
}

var items = []itemDef{
	{domain.ItemKindMovie, "tt0133093", "The Matrix"},
	{domain.ItemKindMovie, "tt0816692", "Interstellar"},
	{domain.ItemKindMovie, "tt6751668", "Parasite"},
	{domain.ItemKindTVShow, "tt0903747", "Breaking Bad"},
	{domain.ItemKindTVShow, "tt0386676", "The Office"},
}

var users = []string{"alice", "bob", "carol", "dave", "erin", "frank"}

var titles = []string{"Instant classic", "Slow start, great finish", "Not for me", "Rewatched twice", "Overhyped"}

var kindPaths = map[domain.ItemKind]string{
	domain.ItemKindMovie:  "movies",
	domain.ItemKindTVShow: "tv-shows",
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

type seeder struct {
	baseURL string
	cfg     *config.Config
	jwt     *auth.JWTManager
	client  *http.Client
}

func (s *seeder) post(ctx context.Context, path, userID string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.IdentityMode == config.IdentityHeader {
		req.Header.Set("X-User-ID", userID)
	} else {
		token, err := s.jwt.Issue(userID, "")
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("review-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 1. Catalog rows via direct SQL.
	pool, err := pgxpool.New(ctx, cfg.Postgres().DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	for _, it := range items {
		table := "movies"
		if it.kind == domain.ItemKindTVShow {
			table = "tv_shows"
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO `+table+` (id, title) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
			it.id, it.title)
		if err != nil {
			return fmt.Errorf("insert %s %s: %w", it.kind, it.id, err)
		}
		log.Info("catalog item ready", slog.String("kind", it.kind.String()), slog.String("id", it.id))
	}

	// 2. Reviews, reactions and votes through the API.
	s := &seeder{
		baseURL: getEnv("REVIEW_URL", fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)),
		cfg:     cfg,
		jwt:     auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, time.Hour),
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	created := 0
	for _, it := range items {
		base := "/api/v1/" + kindPaths[it.kind]
		var reviewIDs []string
		for _, user := range users {
			res, err := s.post(ctx, base+"/items/"+it.id+"/reviews", user, map[string]any{
				"rating":            cfg.RatingMin + rand.IntN(cfg.RatingMax-cfg.RatingMin+1),
				"title":             titles[rand.IntN(len(titles))],
				"content":           fmt.Sprintf("%s left a seeded review of %s.", user, it.title),
				"contains_spoilers": rand.IntN(4) == 0,
			})
			if err != nil {
				log.Warn("review skipped", slog.String("item", it.id), slog.String("user", user), slog.String("error", err.Error()))
				continue
			}
			if data, ok := res["data"].(map[string]any); ok {
				if id, ok := data["id"].(string); ok {
					reviewIDs = append(reviewIDs, id)
				}
			}
			created++
		}

		for _, id := range reviewIDs {
			liker := users[rand.IntN(len(users))]
			if _, err := s.post(ctx, base+"/reviews/"+id+"/like", liker, nil); err != nil {
				log.Warn("like skipped", slog.String("review_id", id), slog.String("error", err.Error()))
			}
			if _, err := s.post(ctx, base+"/reviews/"+id+"/votes", liker, map[string]string{"vote_type": "helpful"}); err != nil {
				log.Warn("vote skipped", slog.String("review_id", id), slog.String("error", err.Error()))
			}
		}
	}

	log.Info("reviews seeded", slog.Int("created", created), slog.Int("items", len(items)))
	return nil
}
