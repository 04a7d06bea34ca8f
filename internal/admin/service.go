package admin

import (
	"context"
	"sort"

	"docscan-backend/internal/credits"
	"docscan-backend/internal/documents"
	"docscan-backend/internal/users"
)

// UserStats is one row of the usage analytics table.
type UserStats struct {
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	CreditsRemaining int    `json:"creditsRemaining"`
	DocumentCount    int    `json:"documentCount"`
}

type Service struct {
	Users  users.Repo
	Docs   documents.Repo
	Ledger *credits.Ledger
}

func NewService(userRepo users.Repo, docRepo documents.Repo, ledger *credits.Ledger) *Service {
	return &Service{Users: userRepo, Docs: docRepo, Ledger: ledger}
}

// Analytics joins known users with their balances and document counts.
// Users that have a balance or documents but no identity row are reported
// under their id. Rows are ordered by username, then id.
func (s *Service) Analytics(ctx context.Context) ([]UserStats, error) {
	known, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.Ledger.Balances(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Docs.CountByUser(ctx)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*UserStats)
	row := func(userID string) *UserStats {
		r, ok := rows[userID]
		if !ok {
			r = &UserStats{UserID: userID, Username: userID, CreditsRemaining: s.Ledger.Allowance()}
			rows[userID] = r
		}
		return r
	}
	for _, u := range known {
		row(u.ID).Username = u.Username
	}
	for _, b := range balances {
		row(b.UserID).CreditsRemaining = b.CreditsRemaining
	}
	for _, c := range counts {
		row(c.UserID).DocumentCount = c.Count
	}

	out := make([]UserStats, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
