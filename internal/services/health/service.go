package health

import (
	"context"
	"database/sql"
	"time"
)

// Service encapsulates health-related checks.
type Service struct {
	DB *sql.DB
}

// NewService constructs a new health service.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status returns a simple health payload including database reachability.
func (s *Service) Status(ctx context.Context) map[string]bool {
	out := map[string]bool{"ok": true}
	if s.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		out["db"] = s.DB.PingContext(pingCtx) == nil
	}
	return out
}
