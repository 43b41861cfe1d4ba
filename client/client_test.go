package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xfriends/config"
	"xfriends/friends"
	"xfriends/models"
	"xfriends/router"
	"xfriends/testutil"
	"xfriends/websocket"
)

var _ friends.Remote = (*Client)(nil)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	testutil.Setup(t)
	config.Cfg.SearchInterval = 50 * time.Millisecond
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func newUser(t *testing.T, srv *httptest.Server, username, nickname string) (*Client, string) {
	t.Helper()
	c, err := New(srv.URL)
	require.NoError(t, err)
	auth, err := c.Register(context.Background(), username, "secret-password", nickname)
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c, auth.User.ID
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("://nope")
	assert.Error(t, err)
}

func TestAPIErrorIs(t *testing.T) {
	err := error(&APIError{Status: http.StatusTooManyRequests, Message: "slow down"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "xfriends: 429 slow down", err.Error())
}

func TestLoginAndMe(t *testing.T) {
	srv := newServer(t)
	_, id := newUser(t, srv, "alice", "Alice")

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(context.Background(), "alice", "bad-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	auth, err := c.Login(context.Background(), "alice", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, id, auth.User.ID)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.Nickname)
}

func TestSearchAndRelationships(t *testing.T) {
	srv := newServer(t)
	alice, aliceID := newUser(t, srv, "alice", "alina")
	bob, bobID := newUser(t, srv, "bob", "alistair")
	ctx := context.Background()

	res, err := alice.SearchUsers(ctx, "ali", 0, 100)
	require.NoError(t, err)
	require.Len(t, res.Users, 2)
	assert.True(t, res.Users[0].IsCurrentUser)

	_, err = alice.SearchUsers(ctx, "ali", 0, 100)
	assert.ErrorIs(t, err, ErrRateLimited)

	require.NoError(t, alice.UpdateFriend(ctx, bobID, models.ActionRequestAdd))
	err = alice.UpdateFriend(ctx, bobID, models.ActionRequestAdd)
	assert.ErrorIs(t, err, ErrConflict)

	incoming, err := bob.GetFriends(ctx, models.FriendsQuery{Type: models.TypeFriendRequestedBy})
	require.NoError(t, err)
	require.Len(t, incoming.Relationships, 1)
	assert.Equal(t, aliceID, incoming.Relationships[0].User.UserID)
	assert.Equal(t, "alina", incoming.Relationships[0].User.Nickname)

	err = bob.UpdateFriend(ctx, "no-such-user", models.ActionBlock)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeReceivesRelationshipChanges(t *testing.T) {
	srv := newServer(t)
	alice, aliceID := newUser(t, srv, "alice", "Alice")
	bob, bobID := newUser(t, srv, "bob", "Bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bob.Subscribe(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return websocket.IsOnline(bobID)
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, alice.UpdateFriend(context.Background(), bobID, models.ActionRequestAdd))

	select {
	case ev := <-events:
		assert.Equal(t, models.EventRelationshipChanged, ev.Event)
		data, ok := ev.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, aliceID, data["user_id"])
		assert.Equal(t, string(models.ActionRequestAdd), data["action"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	resp, err := alice.GetFriends(context.Background(), models.FriendsQuery{Type: models.TypeFriendRequested})
	require.NoError(t, err)
	require.Len(t, resp.Relationships, 1)
	assert.Equal(t, models.PresenceOnline, resp.Relationships[0].User.Presence)

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event stream not closed")
		}
	}
}

func TestSubscribeRequiresToken(t *testing.T) {
	c, err := New("http://localhost:1")
	require.NoError(t, err)
	_, err = c.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
