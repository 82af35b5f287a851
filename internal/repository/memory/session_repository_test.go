package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tokinarc-sales-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_Retention(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(3)
	base := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s := store.NewSession(fmt.Sprintf("s-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Save(ctx, s))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "s-4", list[0].ID)
	assert.Equal(t, "s-3", list[1].ID)
	assert.Equal(t, "s-2", list[2].ID)

	gone, err := repo.Get(ctx, "s-0")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSessionRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(3)
	now := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)

	s := store.NewSession("s-1", now)
	s.AddTurn(store.RoleUser, "Cách điện 004002", now)
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	got.AddTurn(store.RoleAssistant, "mutated", now)

	again, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, again.Turns, 1)
}

func TestSessionRepository_UpdateMovesToFront(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(2)
	base := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)

	a := store.NewSession("a", base)
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, store.NewSession("b", base.Add(time.Minute))))

	a.AddTurn(store.RoleUser, "hello", base.Add(2*time.Minute))
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, store.NewSession("c", base.Add(3*time.Minute))))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"c", "a"}, []string{list[0].ID, list[1].ID})
}

func TestSessionRepository_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(3)
	base := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Save(ctx, store.NewSession(fmt.Sprintf("s-%02d", i), base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(3)
	require.NoError(t, repo.Save(ctx, store.NewSession("x", time.Now())))
	require.NoError(t, repo.Delete(ctx, "x"))

	got, err := repo.Get(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, got)
}
