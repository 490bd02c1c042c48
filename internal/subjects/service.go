package subjects

import (
	"context"
	"errors"
	"strings"

	"pait-backend/internal/quota"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the subject identity from OAuth so session and
// quota ownership stays stable across logins.
func (s *Service) UpsertFromAuth(ctx context.Context, subject Subject) error {
	if s == nil || s.Repo == nil {
		return errors.New("subjects service not configured")
	}
	if strings.TrimSpace(subject.ID) == "" {
		return errors.New("subject id is required")
	}
	return s.Repo.Upsert(ctx, subject)
}

func (s *Service) GetByID(ctx context.Context, subjectID string) (Subject, error) {
	if s == nil || s.Repo == nil {
		return Subject{}, errors.New("subjects service not configured")
	}
	if strings.TrimSpace(subjectID) == "" {
		return Subject{}, errors.New("subject id is required")
	}
	return s.Repo.GetByID(ctx, subjectID)
}

// UpgradeTier moves a subject to a new tier. The quota ledger rebases the
// allowance the next time the subject's state is loaded under the new tier.
func (s *Service) UpgradeTier(ctx context.Context, subjectID string, tier quota.Tier) error {
	if s == nil || s.Repo == nil {
		return errors.New("subjects service not configured")
	}
	if !tier.Valid() {
		return errors.New("unknown tier")
	}
	return s.Repo.SetTier(ctx, subjectID, string(tier))
}
