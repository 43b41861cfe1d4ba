package friends

import "xfriends/models"

// Relationship is how the current user relates to another user.
type Relationship int

const (
	RelationshipNone Relationship = iota
	// RelationshipStandard is an accepted friendship.
	RelationshipStandard
	// RelationshipRequested means the current user sent a request.
	RelationshipRequested
	// RelationshipPending means the other user sent a request.
	RelationshipPending
	RelationshipBlocked
	RelationshipBlockedBy
)

// Bucketed lists the five bucket relationships in lookup order.
var Bucketed = []Relationship{
	RelationshipStandard,
	RelationshipRequested,
	RelationshipPending,
	RelationshipBlocked,
	RelationshipBlockedBy,
}

func (r Relationship) String() string {
	switch r {
	case RelationshipNone:
		return "none"
	case RelationshipStandard:
		return "standard"
	case RelationshipRequested:
		return "requested"
	case RelationshipPending:
		return "pending"
	case RelationshipBlocked:
		return "blocked"
	case RelationshipBlockedBy:
		return "blocked_by"
	}
	return "unknown"
}

// RequestType is the listing type that fills r's bucket. It is empty for
// RelationshipNone.
func (r Relationship) RequestType() models.RequestType {
	switch r {
	case RelationshipStandard:
		return models.TypeFriends
	case RelationshipRequested:
		return models.TypeFriendRequested
	case RelationshipPending:
		return models.TypeFriendRequestedBy
	case RelationshipBlocked:
		return models.TypeBlocked
	case RelationshipBlockedBy:
		return models.TypeBlockedBy
	}
	return ""
}

// Hidden reports whether users in this relationship are left out of search
// results.
func (r Relationship) Hidden() bool {
	return r == RelationshipBlocked || r == RelationshipBlockedBy
}

// Actions lists the changes that can be offered for a user in relationship r.
func (r Relationship) Actions() []models.FriendAction {
	switch r {
	case RelationshipNone:
		return []models.FriendAction{models.ActionRequestAdd, models.ActionBlock}
	case RelationshipStandard:
		return []models.FriendAction{models.ActionRemove, models.ActionBlock}
	case RelationshipRequested:
		return []models.FriendAction{models.ActionRequestCancel, models.ActionBlock}
	case RelationshipPending:
		return []models.FriendAction{models.ActionRequestApprove, models.ActionRequestDeny, models.ActionBlock}
	case RelationshipBlocked:
		return []models.FriendAction{models.ActionUnblock}
	}
	return nil
}

// Allows reports whether action is one of r.Actions().
func (r Relationship) Allows(action models.FriendAction) bool {
	for _, a := range r.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

// Entity is one user as shown on a friends screen. ID is its identity.
type Entity struct {
	ID           string
	AvatarURL    string
	IsOnline     bool
	DisplayName  string
	Relationship Relationship
}

func entityFromRecord(rec models.RelationshipRecord, r Relationship) Entity {
	return Entity{
		ID:           rec.User.UserID,
		AvatarURL:    rec.User.Avatar,
		IsOnline:     rec.User.Presence == models.PresenceOnline,
		DisplayName:  rec.User.Nickname,
		Relationship: r,
	}
}

func entityFromSearch(u models.SearchUser) Entity {
	return Entity{
		ID:           u.UserID,
		AvatarURL:    u.Avatar,
		DisplayName:  u.Nickname,
		Relationship: RelationshipNone,
	}
}
