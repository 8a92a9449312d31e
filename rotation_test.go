package keyloom_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keyloom "github.com/keyloom/keyloom-go"
)

func TestRotateConversation_RateLimited(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	engine, _ := newTestEngine(t,
		keyloom.WithClock(clock.Now),
		keyloom.WithRotationLimit(2, time.Minute),
	)

	device, _ := newTestDevice(t, "alice", "dev-1", keyloom.AlgorithmHybrid)
	devices := []*keyloom.Device{device}

	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, devices, keyloom.SkipExisting)
	require.NoError(t, err)

	// Two rotations fit the window.
	for i := 0; i < 2; i++ {
		res, err := engine.RotateConversation(ctx, "conv-1", devices)
		require.NoError(t, err)
		require.Equal(t, keyloom.OutcomeRotated, res.Outcome, "rotation %d", i)
	}

	// The third is throttled with a retry hint and changes no state.
	before, err := engine.KeyState(ctx, "conv-1")
	require.NoError(t, err)

	res, err := engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	assert.Equal(t, keyloom.OutcomeRateLimited, res.Outcome)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.Nil(t, res.NewKey)

	after, err := engine.KeyState(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, before.Active[0].ID, after.Active[0].ID)

	// Once the window elapses the rotation goes through.
	clock.Advance(61 * time.Second)
	res, err = engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	assert.Equal(t, keyloom.OutcomeRotated, res.Outcome)
}

func TestRotateConversation_PerConversationLimiters(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	engine, _ := newTestEngine(t,
		keyloom.WithClock(clock.Now),
		keyloom.WithRotationLimit(1, time.Minute),
	)

	device, _ := newTestDevice(t, "alice", "dev-1", keyloom.AlgorithmHybrid)
	devices := []*keyloom.Device{device}

	res, err := engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	require.Equal(t, keyloom.OutcomeRotated, res.Outcome)

	res, err = engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	assert.Equal(t, keyloom.OutcomeRateLimited, res.Outcome)

	// Throttling conv-1 does not throttle conv-2.
	res, err = engine.RotateConversation(ctx, "conv-2", devices)
	require.NoError(t, err)
	assert.Equal(t, keyloom.OutcomeRotated, res.Outcome)
}

func TestEmergencyRevoke(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	compromised, _ := newTestDevice(t, "alice", "dev-compromised", keyloom.AlgorithmHybrid)
	healthy, healthyKP := newTestDevice(t, "alice", "dev-healthy", keyloom.AlgorithmHybrid)
	devices := []*keyloom.Device{compromised, healthy}

	oldKey := testSymmetricKey(t)
	dist, err := engine.Distribute(ctx, "conv-1", oldKey, devices, keyloom.SkipExisting)
	require.NoError(t, err)
	require.Len(t, dist.Created, 2)

	tuple := keyloom.KeyTuple{
		ConversationID: "conv-1",
		UserID:         "alice",
		DeviceID:       "dev-compromised",
		Algorithm:      keyloom.AlgorithmHybrid,
	}
	target, err := store.ActiveRecord(ctx, tuple)
	require.NoError(t, err)

	res, err := engine.EmergencyRevoke(ctx, target, "device stolen", devices)
	require.NoError(t, err)

	// The caller's copy is revoked and scrubbed.
	assert.Equal(t, keyloom.StatusRevoked, target.Status())
	assert.Nil(t, target.WrappedKey)
	assert.Equal(t, "device stolen", target.RevocationReason)

	// The store shows the revocation and the atomic replacement.
	stored, err := store.Record(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, keyloom.StatusRevoked, stored.Status())
	require.NotNil(t, stored.RevokedAt)

	replacement, err := store.ActiveRecord(ctx, tuple)
	require.NoError(t, err)
	assert.Equal(t, res.Replacement.ID, replacement.ID)
	assert.Equal(t, stored.Version+1, replacement.Version)

	// The healthy device got the fresh key too, and it works.
	require.Len(t, res.Distribution.Created, 1)
	got, err := keyloom.UnwrapSymmetricKey(keyloom.AlgorithmHybrid, healthyKP.PrivateKey, res.Distribution.Created[0].WrappedKey)
	require.NoError(t, err)
	assert.Equal(t, res.NewKey, got)
	assert.NotEqual(t, oldKey, res.NewKey)
}

func TestEmergencyRevoke_BypassesRateLimit(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	engine, store := newTestEngine(t,
		keyloom.WithClock(clock.Now),
		keyloom.WithRotationLimit(1, time.Minute),
	)

	device, _ := newTestDevice(t, "alice", "dev-1", keyloom.AlgorithmHybrid)
	devices := []*keyloom.Device{device}

	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, devices, keyloom.SkipExisting)
	require.NoError(t, err)

	// Exhaust the scheduled-rotation window.
	res, err := engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	require.Equal(t, keyloom.OutcomeRotated, res.Outcome)
	res, err = engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	require.Equal(t, keyloom.OutcomeRateLimited, res.Outcome)

	// A security response goes through regardless.
	tuple := keyloom.KeyTuple{
		ConversationID: "conv-1",
		UserID:         "alice",
		DeviceID:       "dev-1",
		Algorithm:      keyloom.AlgorithmHybrid,
	}
	target, err := store.ActiveRecord(ctx, tuple)
	require.NoError(t, err)

	_, err = engine.EmergencyRevoke(ctx, target, "key exposure", devices)
	require.NoError(t, err)
}

func TestEmergencyRevoke_DeviceNotInSet(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	device, _ := newTestDevice(t, "alice", "dev-1", keyloom.AlgorithmHybrid)
	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, []*keyloom.Device{device}, keyloom.SkipExisting)
	require.NoError(t, err)

	tuple := keyloom.KeyTuple{
		ConversationID: "conv-1",
		UserID:         "alice",
		DeviceID:       "dev-1",
		Algorithm:      keyloom.AlgorithmHybrid,
	}
	target, err := store.ActiveRecord(ctx, tuple)
	require.NoError(t, err)

	_, err = engine.EmergencyRevoke(ctx, target, "stolen", nil)
	assert.ErrorIs(t, err, keyloom.ErrRecordNotFound)
}

func TestEmergencyRevoke_StaleRecord(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	device, _ := newTestDevice(t, "alice", "dev-1", keyloom.AlgorithmHybrid)
	devices := []*keyloom.Device{device}

	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, devices, keyloom.SkipExisting)
	require.NoError(t, err)

	tuple := keyloom.KeyTuple{
		ConversationID: "conv-1",
		UserID:         "alice",
		DeviceID:       "dev-1",
		Algorithm:      keyloom.AlgorithmHybrid,
	}
	stale, err := store.ActiveRecord(ctx, tuple)
	require.NoError(t, err)

	// Rotation supersedes the record the caller is still holding.
	res, err := engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)
	require.Equal(t, keyloom.OutcomeRotated, res.Outcome)

	_, err = engine.EmergencyRevoke(ctx, stale, "stolen", devices)
	assert.ErrorIs(t, err, keyloom.ErrConflict)
}

func TestRotateConversation_EmitsRotatedEvent(t *testing.T) {
	ctx := context.Background()

	var types []keyloom.EventType
	engine, _ := newTestEngine(t, keyloom.WithEventSink(keyloom.EventSinkFunc(func(ev keyloom.Event) {
		types = append(types, ev.Type)
	})))

	device, _ := newTestDevice(t, "alice", "dev-1", keyloom.AlgorithmHybrid)
	devices := []*keyloom.Device{device}

	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, devices, keyloom.SkipExisting)
	require.NoError(t, err)

	_, err = engine.RotateConversation(ctx, "conv-1", devices)
	require.NoError(t, err)

	assert.Contains(t, types, keyloom.EventKeyRotated)
}
