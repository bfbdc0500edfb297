package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/models"
	"github.com/akumol/guardian/internal/storage/memory"
	"github.com/akumol/guardian/internal/storage/notify"
)

func newTestStorage(t *testing.T) (*memory.Manager, *notify.ProfileNotifier) {
	t.Helper()
	logger := common.NewSilentLogger()
	notifier := notify.NewProfileNotifier(logger)
	return memory.NewManager(logger, notifier), notifier
}

func seedAccount(t *testing.T, storage *memory.Manager, id string, verified bool) *models.Profile {
	t.Helper()
	ctx := context.Background()
	ident := &models.Identity{
		ID:            id,
		Email:         id + "@example.com",
		PasswordHash:  "x",
		DisplayName:   "Test User",
		EmailVerified: verified,
		CreatedAt:     time.Now().UTC(),
		ModifiedAt:    time.Now().UTC(),
	}
	require.NoError(t, storage.IdentityStore().Create(ctx, ident))
	profile := models.NewProfile(ident)
	require.NoError(t, storage.ProfileStore().Create(ctx, profile))
	return profile
}

func nextView(t *testing.T, views <-chan models.SessionView) models.SessionView {
	t.Helper()
	select {
	case v, ok := <-views:
		require.True(t, ok, "view channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session view")
		return models.SessionView{}
	}
}

// waitResolved consumes loading ticks until a settled view arrives.
func waitResolved(t *testing.T, views <-chan models.SessionView) models.SessionView {
	t.Helper()
	for i := 0; i < 10; i++ {
		v := nextView(t, views)
		if !v.Loading {
			return v
		}
	}
	t.Fatal("never saw a resolved view")
	return models.SessionView{}
}

func TestSynchronizerLoginResolvesProfile(t *testing.T) {
	storage, _ := newTestStorage(t)
	seedAccount(t, storage, "u1", true)

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	defer sync.Close()

	sync.SetIdentity(context.Background(), "u1")

	v := nextView(t, sync.Views())
	assert.True(t, v.Loading, "first tick after login should be loading")

	v = waitResolved(t, sync.Views())
	require.NotNil(t, v.Profile)
	assert.Equal(t, "u1", v.Profile.UID)
	assert.Equal(t, models.PlanBasic, v.Profile.Plan)
}

func TestSynchronizerUnverifiedIdentityStaysAnonymous(t *testing.T) {
	storage, _ := newTestStorage(t)
	seedAccount(t, storage, "u1", false)

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	defer sync.Close()

	sync.SetIdentity(context.Background(), "u1")

	v := waitResolved(t, sync.Views())
	assert.Nil(t, v.Profile)
}

func TestSynchronizerMissingProfileResolvesNil(t *testing.T) {
	storage, _ := newTestStorage(t)
	ctx := context.Background()
	ident := &models.Identity{ID: "u1", Email: "u1@example.com", EmailVerified: true}
	require.NoError(t, storage.IdentityStore().Create(ctx, ident))

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	defer sync.Close()

	sync.SetIdentity(ctx, "u1")

	v := waitResolved(t, sync.Views())
	assert.Nil(t, v.Profile, "identity without a profile document resolves to logged out")
	assert.False(t, v.Loading)
}

func TestSynchronizerStreamsLiveProfileWrites(t *testing.T) {
	storage, _ := newTestStorage(t)
	seedAccount(t, storage, "u1", true)
	ctx := context.Background()

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	defer sync.Close()

	sync.SetIdentity(ctx, "u1")
	waitResolved(t, sync.Views())

	plan := models.PlanUltimate
	_, err := storage.ProfileStore().Patch(ctx, "u1", &models.ProfilePatch{Plan: &plan})
	require.NoError(t, err)

	v := waitResolved(t, sync.Views())
	require.NotNil(t, v.Profile)
	assert.Equal(t, models.PlanUltimate, v.Profile.Plan, "plan change should arrive without a re-login")
}

func TestSynchronizerIdentitySwitchTearsDownOldWatch(t *testing.T) {
	storage, notifier := newTestStorage(t)
	seedAccount(t, storage, "u1", true)
	seedAccount(t, storage, "u2", true)
	ctx := context.Background()

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	defer sync.Close()

	sync.SetIdentity(ctx, "u1")
	waitResolved(t, sync.Views())

	sync.SetIdentity(ctx, "u2")
	v := waitResolved(t, sync.Views())
	require.NotNil(t, v.Profile)
	assert.Equal(t, "u2", v.Profile.UID)

	// The previous identity must no longer hold a subscription.
	assert.Eventually(t, func() bool {
		return notifier.SubscriberCount("u1") == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, notifier.SubscriberCount("u2"))

	// Writes to the old identity must not surface on the stream.
	bio := "stale"
	_, err := storage.ProfileStore().Patch(ctx, "u1", &models.ProfilePatch{Bio: &bio})
	require.NoError(t, err)

	select {
	case v := <-sync.Views():
		if v.Profile != nil {
			assert.Equal(t, "u2", v.Profile.UID)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSynchronizerClearIdentityReleasesSubscription(t *testing.T) {
	storage, notifier := newTestStorage(t)
	seedAccount(t, storage, "u1", true)

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	defer sync.Close()

	sync.SetIdentity(context.Background(), "u1")
	waitResolved(t, sync.Views())

	sync.ClearIdentity()
	v := waitResolved(t, sync.Views())
	assert.Nil(t, v.Profile)

	assert.Eventually(t, func() bool {
		return notifier.SubscriberCount("u1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSynchronizerCloseEndsStream(t *testing.T) {
	storage, _ := newTestStorage(t)
	seedAccount(t, storage, "u1", true)

	sync := NewSynchronizer(storage, common.NewSilentLogger())
	sync.SetIdentity(context.Background(), "u1")
	waitResolved(t, sync.Views())

	sync.Close()
	sync.Close() // idempotent

	for {
		select {
		case _, ok := <-sync.Views():
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("view channel did not close")
		}
	}
}
