package models

import "fmt"

// Friendship statuses as stored in the directed friendships table.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusBlocked  = "blocked"
)

type Friendship struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	FriendID  string `json:"friend_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// RequestType selects one relationship bucket when listing.
type RequestType string

const (
	TypeFriends           RequestType = "friends"
	TypeFriendRequested   RequestType = "friend_requested"
	TypeFriendRequestedBy RequestType = "friend_requested_by"
	TypeBlocked           RequestType = "blocked"
	TypeBlockedBy         RequestType = "blocked_by"
)

func (t RequestType) Valid() bool {
	switch t {
	case TypeFriends, TypeFriendRequested, TypeFriendRequestedBy, TypeBlocked, TypeBlockedBy:
		return true
	}
	return false
}

type SortBy string

const (
	SortByNickname SortBy = "by_nickname"
	SortByUpdated  SortBy = "by_updated"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type FriendAction string

const (
	ActionRequestAdd     FriendAction = "friend_request_add"
	ActionRequestCancel  FriendAction = "friend_request_cancel"
	ActionRequestApprove FriendAction = "friend_request_approve"
	ActionRequestDeny    FriendAction = "friend_request_deny"
	ActionRemove         FriendAction = "friend_remove"
	ActionBlock          FriendAction = "block"
	ActionUnblock        FriendAction = "unblock"
)

func ParseFriendAction(s string) (FriendAction, error) {
	a := FriendAction(s)
	switch a {
	case ActionRequestAdd, ActionRequestCancel, ActionRequestApprove, ActionRequestDeny,
		ActionRemove, ActionBlock, ActionUnblock:
		return a, nil
	}
	return "", fmt.Errorf("unknown friend action %q", s)
}

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

type RelationshipUser struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Presence string `json:"presence"`
}

type RelationshipRecord struct {
	User    RelationshipUser `json:"user"`
	Updated int64            `json:"updated"`
}

type FriendsResponse struct {
	Relationships []RelationshipRecord `json:"relationships"`
	NextAfter     string               `json:"next_after"`
}

// FriendsQuery is the parameter set of a relationship listing.
type FriendsQuery struct {
	Type      RequestType
	SortBy    SortBy
	SortOrder SortOrder
	Limit     int
	After     string
}

type UpdateFriendRequest struct {
	Action FriendAction `json:"action" binding:"required"`
	UserID string       `json:"user" binding:"required"`
}
