package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tokinarc-sales-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

const DefaultMaxSessions = 3

type SessionRepository struct {
	mu          sync.Mutex
	cache       *cache.Cache
	maxSessions int
}

// NewSessionRepository keeps at most maxSessions sessions. Idle sessions
// also expire after a day.
func NewSessionRepository(maxSessions int) *SessionRepository {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &SessionRepository{
		cache:       cache.New(24*time.Hour, 10*time.Minute),
		maxSessions: maxSessions,
	}
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)

	sessions := r.sorted()
	for _, old := range sessions[min(len(sessions), r.maxSessions):] {
		r.cache.Delete(old.ID)
	}
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (*store.Session, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*store.Session).Clone(), nil
	}
	return nil, nil
}

func (r *SessionRepository) List(_ context.Context) ([]*store.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.sorted()
	out := make([]*store.Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) sorted() []*store.Session {
	items := r.cache.Items()
	sessions := make([]*store.Session, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Object.(*store.Session))
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}
