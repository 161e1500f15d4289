package refreshtokens

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id, subject string) *models.RefreshToken {
	return &models.RefreshToken{
		TokenID:   id,
		Subject:   subject,
		ExpiresAt: epoch.Add(24 * time.Hour),
		CreatedAt: epoch,
	}
}

// runContract exercises the behaviour every Repository implementation shares.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("insert and find", func(t *testing.T) {
		repo := newRepo(t)
		want := record("t1", "a@x.com")
		require.NoError(t, repo.Insert(ctx, want))

		got, err := repo.FindByTokenID(ctx, "t1")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want, got))
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("t1", "a")))

		err := repo.Insert(ctx, record("t1", "b"))
		require.ErrorIs(t, err, common.ErrDuplicateTokenID)

		got, err := repo.FindByTokenID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "a", got.Subject, "the original record must be untouched")
	})

	t.Run("find missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByTokenID(ctx, "nope")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("t1", "a")))

		require.NoError(t, repo.Revoke(ctx, "t1"))
		require.NoError(t, repo.Revoke(ctx, "t1"))
		require.NoError(t, repo.Revoke(ctx, "never-issued"))

		got, err := repo.FindByTokenID(ctx, "t1")
		require.NoError(t, err)
		assert.True(t, got.Revoked)

		_, err = repo.FindByTokenID(ctx, "never-issued")
		require.ErrorIs(t, err, common.ErrorNotFound, "revoke must not create records")
	})

	t.Run("rotate", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("old", "a")))

		require.NoError(t, repo.Rotate(ctx, "old", record("new", "a")))

		old, err := repo.FindByTokenID(ctx, "old")
		require.NoError(t, err)
		assert.True(t, old.Revoked)

		next, err := repo.FindByTokenID(ctx, "new")
		require.NoError(t, err)
		assert.False(t, next.Revoked)
		assert.Equal(t, "a", next.Subject)
	})

	t.Run("rotate revoked", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("old", "a")))
		require.NoError(t, repo.Revoke(ctx, "old"))

		err := repo.Rotate(ctx, "old", record("new", "a"))
		require.ErrorIs(t, err, common.ErrTokenRevoked)

		_, err = repo.FindByTokenID(ctx, "new")
		require.ErrorIs(t, err, common.ErrorNotFound, "a failed rotation must not leave a successor")
	})

	t.Run("rotate missing", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Rotate(ctx, "ghost", record("new", "a"))
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("rotate into duplicate id changes nothing", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("old", "a")))
		require.NoError(t, repo.Insert(ctx, record("taken", "b")))

		err := repo.Rotate(ctx, "old", record("taken", "a"))
		require.ErrorIs(t, err, common.ErrDuplicateTokenID)

		old, err := repo.FindByTokenID(ctx, "old")
		require.NoError(t, err)
		assert.False(t, old.Revoked, "old record must stay usable when the rotation is rolled back")
	})

	t.Run("revoke all for subject", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("a1", "a")))
		require.NoError(t, repo.Insert(ctx, record("a2", "a")))
		require.NoError(t, repo.Insert(ctx, record("b1", "b")))

		revoked := record("a3", "a")
		revoked.Revoked = true
		require.NoError(t, repo.Insert(ctx, revoked))

		expired := record("a4", "a")
		expired.ExpiresAt = epoch.Add(time.Hour)
		require.NoError(t, repo.Insert(ctx, expired))

		n, err := repo.RevokeAllForSubject(ctx, "a", epoch.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		for _, id := range []string{"a1", "a2"} {
			got, err := repo.FindByTokenID(ctx, id)
			require.NoError(t, err)
			assert.True(t, got.Revoked, id)
		}
		b1, err := repo.FindByTokenID(ctx, "b1")
		require.NoError(t, err)
		assert.False(t, b1.Revoked)
	})

	t.Run("concurrent rotate has a single winner", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, record("old", "a")))

		const workers = 16
		start := make(chan struct{})
		results := make(chan error, workers)
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				<-start
				results <- repo.Rotate(ctx, "old", record(fmt.Sprintf("next-%d", i), "a"))
			}(i)
		}
		close(start)
		wg.Wait()
		close(results)

		success := 0
		for err := range results {
			if err == nil {
				success++
				continue
			}
			assert.ErrorIs(t, err, common.ErrTokenRevoked)
		}
		assert.Equal(t, 1, success)
	})
}
