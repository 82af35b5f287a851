package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the advisory lock every delta writer holds, the service
// and knowledgectl alike.
const LockFileName = ".knowledge_delta.lock"

const lockRetryDelay = 50 * time.Millisecond

func (s *Store) LockPath() string { return filepath.Join(s.cfg.Dir, LockFileName) }

// lockDelta blocks until this process holds the delta lock or ctx is done.
// The lock lives in its own file: the delta itself is replaced by rename.
func (s *Store) lockDelta(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}
	fl := flock.New(s.LockPath())
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock delta: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock delta: %s is held elsewhere", s.LockPath())
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("KNOWLEDGE", "Failed to release delta lock", map[string]interface{}{"error": err.Error()})
		}
	}, nil
}
