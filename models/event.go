package models

const (
	EventPong                = "pong"
	EventRelationshipChanged = "relationship_changed"
)

// Event is the websocket envelope pushed by the server.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type RelationshipChanged struct {
	UserID string       `json:"user_id"`
	Action FriendAction `json:"action"`
}
