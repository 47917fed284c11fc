package contract

import (
	"context"

	"studymate-be/pkg/store"
)

// SessionRepository persists per-visitor session state between requests.
// Get reports found=false with a nil error for unknown or expired ids.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*store.Session, bool, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
}
