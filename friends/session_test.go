package friends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xfriends/models"
)

func fastOptions() Options {
	return Options{
		SearchDelay:    30 * time.Millisecond,
		SearchInterval: 5 * time.Millisecond,
	}
}

func nextResult(t *testing.T, s *Session) SearchResult {
	t.Helper()
	select {
	case res := <-s.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no search result published")
	}
	return SearchResult{}
}

func TestSessionDebouncedSearchScenario(t *testing.T) {
	f := seededRemote()
	s := NewSession(f, fastOptions())
	defer s.Close()
	require.NoError(t, s.Reload(context.Background()))

	assert.False(t, s.SetQuery("ab"))
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, f.searchLog())

	assert.True(t, s.SetQuery("alis"))
	assert.True(t, s.SetQuery("aliso"))

	res := nextResult(t, s)
	assert.Equal(t, "aliso", res.Query)
	require.NoError(t, res.Err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "u-pend", res.Entities[0].ID)
	assert.Equal(t, RelationshipPending, res.Entities[0].Relationship)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"aliso"}, f.searchLog())
}

func TestSessionFailedSearchClearsResults(t *testing.T) {
	f := seededRemote()
	f.searchErr = errBoom
	s := NewSession(f, fastOptions())
	defer s.Close()

	s.SetQuery("alina")
	res := nextResult(t, s)
	assert.ErrorIs(t, res.Err, errBoom)
	assert.NotNil(t, res.Entities)
	assert.Empty(t, res.Entities)
}

func TestSessionUpdateFriendshipRerunsSearch(t *testing.T) {
	f := seededRemote()
	s := NewSession(f, fastOptions())
	defer s.Close()
	require.NoError(t, s.Reload(context.Background()))

	s.SetQuery("alin")
	res := nextResult(t, s)
	require.Equal(t, []string{"u-friend"}, ids(res.Entities))

	friend, ok := s.Lookup("u-friend")
	require.True(t, ok)
	require.NoError(t, s.UpdateFriendship(context.Background(), friend, models.ActionBlock))

	res = nextResult(t, s)
	assert.Equal(t, "alin", res.Query)
	assert.Empty(t, res.Entities)
	assert.Equal(t, []string{"alin", "alin"}, f.searchLog())
	assert.Contains(t, ids(s.Bucket(RelationshipBlocked)), "u-friend")
}

func TestSessionUpdateFriendshipBlankQuerySkipsSearch(t *testing.T) {
	f := seededRemote()
	s := NewSession(f, fastOptions())
	defer s.Close()
	require.NoError(t, s.Reload(context.Background()))

	s.SetQuery("  ")
	require.NoError(t, s.UpdateFriendship(context.Background(), Entity{ID: "u-pend"}, models.ActionRequestApprove))

	assert.Empty(t, f.searchLog())
	assert.Contains(t, ids(s.Bucket(RelationshipStandard)), "u-pend")
	assert.Empty(t, s.Bucket(RelationshipPending))
}

func TestSessionRejectedUpdateKeepsState(t *testing.T) {
	f := seededRemote()
	s := NewSession(f, fastOptions())
	defer s.Close()
	require.NoError(t, s.Reload(context.Background()))
	f.updateErr = errBoom

	s.SetQuery("")
	err := s.UpdateFriendship(context.Background(), Entity{ID: "u-block"}, models.ActionUnblock)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"u-block"}, ids(s.Bucket(RelationshipBlocked)))
}

func TestSessionSearchIntervalSpacesRequests(t *testing.T) {
	f := seededRemote()
	opts := fastOptions()
	opts.SearchDelay = 5 * time.Millisecond
	opts.SearchInterval = 150 * time.Millisecond
	s := NewSession(f, opts)
	defer s.Close()

	s.SetQuery("alia")
	nextResult(t, s)
	start := time.Now()
	require.NoError(t, s.UpdateFriendship(context.Background(), Entity{ID: "u-new"}, models.ActionRequestAdd))
	nextResult(t, s)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestSessionEventsTriggerReconcile(t *testing.T) {
	f := seededRemote()
	events := make(chan models.Event, 1)
	opts := fastOptions()
	opts.Events = events
	s := NewSession(f, opts)
	defer s.Close()
	require.NoError(t, s.Reload(context.Background()))

	f.relate(models.TypeFriendRequestedBy, "u-new")
	events <- models.Event{Event: models.EventPong}
	events <- models.Event{Event: models.EventRelationshipChanged}

	assert.Eventually(t, func() bool {
		return len(s.Bucket(RelationshipPending)) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSessionEventReloadErrorsAreReported(t *testing.T) {
	f := seededRemote()
	events := make(chan models.Event, 1)
	opts := fastOptions()
	opts.Events = events
	s := NewSession(f, opts)
	defer s.Close()

	f.setFail(models.TypeFriends, errBoom)
	events <- models.Event{Event: models.EventRelationshipChanged}

	select {
	case err := <-s.Errors():
		var be *BucketError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, RelationshipStandard, be.Relationship)
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestSessionSearchDuringReloadUsesOneSnapshot(t *testing.T) {
	ctx := context.Background()
	f := seededRemote()
	s := NewSession(f, fastOptions())
	defer s.Close()
	require.NoError(t, s.Reload(ctx))
	require.NoError(t, f.UpdateFriend(ctx, "u-friend", models.ActionBlock))

	release := f.gate(models.TypeFriends)
	defer release()
	done := make(chan error, 1)
	go func() { done <- s.Reload(ctx) }()
	require.Eventually(t, func() bool { return f.calls() == 2*len(Bucketed)-1 }, time.Second, 5*time.Millisecond)

	require.True(t, s.SetQuery("alina"))
	res := nextResult(t, s)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, RelationshipStandard, res.Entities[0].Relationship)

	release()
	require.NoError(t, <-done)

	require.True(t, s.SetQuery("alin"))
	res = nextResult(t, s)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Entities)
}

func TestSessionShortQueryKeepsInFlightResult(t *testing.T) {
	f := seededRemote()
	hold := make(chan struct{})
	f.searchGate = hold
	s := NewSession(f, fastOptions())
	defer s.Close()
	require.NoError(t, s.Reload(context.Background()))

	require.True(t, s.SetQuery("alis"))
	require.Eventually(t, func() bool { return len(f.searchLog()) == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, s.SetQuery("al"))
	close(hold)

	res := nextResult(t, s)
	assert.Equal(t, "alis", res.Query)
	assert.Equal(t, []string{"u-pend"}, ids(res.Entities))
}

func TestSessionCloseDropsPendingSearch(t *testing.T) {
	f := seededRemote()
	s := NewSession(f, fastOptions())

	s.SetQuery("alina")
	s.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, f.searchLog())
	assert.False(t, s.SetQuery("alina"))
}
