package friends

import (
	"context"

	"xfriends/models"
)

// Remote is the friends backend. Calls may block on the network and are not
// interrupted by newer searches.
type Remote interface {
	SearchUsers(ctx context.Context, nickname string, offset, limit int) (*models.SearchUsersResponse, error)
	GetFriends(ctx context.Context, q models.FriendsQuery) (*models.FriendsResponse, error)
	UpdateFriend(ctx context.Context, userID string, action models.FriendAction) error
}
