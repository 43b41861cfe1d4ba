package friends

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xfriends/models"
)

func TestReconcilerBlockMovesUserToBlocked(t *testing.T) {
	f := seededRemote()
	p := NewPartitioner(f, 0, 0)
	require.NoError(t, p.LoadAll(context.Background()))

	var reruns int32
	r := NewReconciler(f, p, 0, func(context.Context) { atomic.AddInt32(&reruns, 1) })

	friend, ok := p.Lookup("u-friend")
	require.True(t, ok)
	require.NoError(t, r.UpdateFriendship(context.Background(), friend, models.ActionBlock))

	assert.NotContains(t, ids(p.Bucket(RelationshipStandard)), "u-friend")
	assert.Contains(t, ids(p.Bucket(RelationshipBlocked)), "u-friend")
	assert.Equal(t, int32(1), atomic.LoadInt32(&reruns))

	got := p.Classify([]models.SearchUser{{UserID: "u-friend"}})
	assert.Empty(t, got)
}

func TestReconcilerFailedUpdateChangesNothing(t *testing.T) {
	f := seededRemote()
	p := NewPartitioner(f, 0, 0)
	require.NoError(t, p.LoadAll(context.Background()))
	f.updateErr = errBoom

	before := f.getCalls
	var reruns int32
	r := NewReconciler(f, p, 0, func(context.Context) { atomic.AddInt32(&reruns, 1) })

	friend, _ := p.Lookup("u-friend")
	err := r.UpdateFriendship(context.Background(), friend, models.ActionRemove)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "friend_remove u-friend")

	assert.Equal(t, before, f.getCalls)
	assert.Zero(t, atomic.LoadInt32(&reruns))
	assert.Equal(t, []string{"u-friend"}, ids(p.Bucket(RelationshipStandard)))
}

func TestReconcilerRerunsAfterPartialReload(t *testing.T) {
	f := seededRemote()
	p := NewPartitioner(f, 0, 0)
	require.NoError(t, p.LoadAll(context.Background()))
	f.setFail(models.TypeBlockedBy, errBoom)

	var reruns int32
	r := NewReconciler(f, p, 0, func(context.Context) { atomic.AddInt32(&reruns, 1) })

	stranger := Entity{ID: "u-new"}
	err := r.UpdateFriendship(context.Background(), stranger, models.ActionRequestAdd)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reruns))
	assert.Contains(t, ids(p.Bucket(RelationshipRequested)), "u-new")
}

func TestReconcilerSettleHonoursContext(t *testing.T) {
	f := seededRemote()
	p := NewPartitioner(f, 0, 0)

	var reruns int32
	r := NewReconciler(f, p, time.Hour, func(context.Context) { atomic.AddInt32(&reruns, 1) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Reconcile(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, atomic.LoadInt32(&reruns))
}

func TestReconcilerNilRerun(t *testing.T) {
	f := seededRemote()
	p := NewPartitioner(f, 0, 0)
	r := NewReconciler(f, p, 0, nil)

	require.NoError(t, r.Reconcile(context.Background()))
	assert.Len(t, p.Bucket(RelationshipPending), 1)
}
