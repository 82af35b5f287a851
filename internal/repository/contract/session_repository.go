package contract

import (
	"context"

	"tokinarc-sales-be/pkg/store"
)

// SessionRepository persists chat sessions. Implementations keep only the
// most recently updated sessions and evict the rest on Save.
type SessionRepository interface {
	Save(ctx context.Context, session *store.Session) error
	// Get returns a copy of the session, or nil when it does not exist.
	Get(ctx context.Context, id string) (*store.Session, error)
	// List returns sessions ordered by UpdatedAt, newest first.
	List(ctx context.Context) ([]*store.Session, error)
	Delete(ctx context.Context, id string) error
}
