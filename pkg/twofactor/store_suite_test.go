package twofactor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/twofactor"
)

// runStoreSuite checks the Store contract shared by every implementation.
func runStoreSuite(t *testing.T, store twofactor.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	enroll := func(t *testing.T, hashes ...string) uuid.UUID {
		t.Helper()
		id := uuid.New()
		require.NoError(t, store.SaveEnrollment(ctx, twofactor.Record{
			IdentityID:   id,
			SealedSecret: "sealed-" + id.String(),
			CreatedAt:    now,
		}, hashes))
		return id
	}

	t.Run("enrollment lifecycle", func(t *testing.T) {
		t.Parallel()
		_, err := store.GetEnrollment(ctx, uuid.New())
		assert.ErrorIs(t, err, twofactor.ErrNotFound)
		assert.ErrorIs(t, store.MarkEnabled(ctx, uuid.New(), now), twofactor.ErrNotFound)

		id := enroll(t, "h1")
		rec, err := store.GetEnrollment(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.IdentityID)
		assert.Equal(t, "sealed-"+id.String(), rec.SealedSecret)
		assert.False(t, rec.Enabled)
		assert.WithinDuration(t, now, rec.CreatedAt, time.Millisecond)
		assert.True(t, rec.ConfirmedAt.IsZero())

		require.NoError(t, store.MarkEnabled(ctx, id, now.Add(time.Minute)))
		rec, err = store.GetEnrollment(ctx, id)
		require.NoError(t, err)
		assert.True(t, rec.Enabled)
		assert.WithinDuration(t, now.Add(time.Minute), rec.ConfirmedAt, time.Millisecond)

		require.NoError(t, store.DeleteEnrollment(ctx, id))
		_, err = store.GetEnrollment(ctx, id)
		assert.ErrorIs(t, err, twofactor.ErrNotFound)
		n, err := store.CountBackupCodes(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("backup codes are single use", func(t *testing.T) {
		t.Parallel()
		id := enroll(t, "a", "b", "c")

		n, err := store.CountBackupCodes(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		ok, err := store.ConsumeBackupCode(ctx, id, "a")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ConsumeBackupCode(ctx, id, "a")
		require.NoError(t, err)
		assert.False(t, ok, "replay")

		ok, err = store.ConsumeBackupCode(ctx, id, "zzz")
		require.NoError(t, err)
		assert.False(t, ok, "unknown")

		ok, err = store.ConsumeBackupCode(ctx, uuid.New(), "b")
		require.NoError(t, err)
		assert.False(t, ok, "other identity")

		n, err = store.CountBackupCodes(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, store.ReplaceBackupCodes(ctx, id, []string{"x", "y"}))
		ok, err = store.ConsumeBackupCode(ctx, id, "b")
		require.NoError(t, err)
		assert.False(t, ok, "replaced")
		n, err = store.CountBackupCodes(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		assert.ErrorIs(t, store.ReplaceBackupCodes(ctx, uuid.New(), []string{"x"}), twofactor.ErrNotFound)
	})

	t.Run("concurrent consumption has one winner", func(t *testing.T) {
		t.Parallel()
		id := enroll(t, "race")

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.ConsumeBackupCode(ctx, id, "race")
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("challenges", func(t *testing.T) {
		t.Parallel()
		id := enroll(t)
		c := twofactor.Challenge{TokenHash: uuid.NewString(), IdentityID: id, ExpiresAt: now.Add(time.Hour)}

		_, err := store.GetChallenge(ctx, c.TokenHash)
		assert.ErrorIs(t, err, twofactor.ErrNotFound)

		require.NoError(t, store.SaveChallenge(ctx, c))
		got, err := store.GetChallenge(ctx, c.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, id, got.IdentityID)
		assert.WithinDuration(t, c.ExpiresAt, got.ExpiresAt, time.Millisecond)

		require.NoError(t, store.DeleteChallenge(ctx, c.TokenHash))
		_, err = store.GetChallenge(ctx, c.TokenHash)
		assert.ErrorIs(t, err, twofactor.ErrNotFound)
		assert.NoError(t, store.DeleteChallenge(ctx, c.TokenHash), "deleting twice is fine")
	})

	t.Run("re-enrolling and deleting drop open challenges", func(t *testing.T) {
		t.Parallel()
		id := enroll(t, "old")
		first := twofactor.Challenge{TokenHash: uuid.NewString(), IdentityID: id, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, store.SaveChallenge(ctx, first))

		require.NoError(t, store.SaveEnrollment(ctx, twofactor.Record{IdentityID: id, SealedSecret: "new", CreatedAt: now}, []string{"new"}))
		_, err := store.GetChallenge(ctx, first.TokenHash)
		assert.ErrorIs(t, err, twofactor.ErrNotFound)
		ok, err := store.ConsumeBackupCode(ctx, id, "old")
		require.NoError(t, err)
		assert.False(t, ok)

		second := twofactor.Challenge{TokenHash: uuid.NewString(), IdentityID: id, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, store.SaveChallenge(ctx, second))
		require.NoError(t, store.DeleteEnrollment(ctx, id))
		_, err = store.GetChallenge(ctx, second.TokenHash)
		assert.ErrorIs(t, err, twofactor.ErrNotFound)
	})
}
