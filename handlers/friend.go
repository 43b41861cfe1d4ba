package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"xfriends/database"
	"xfriends/middleware"
	"xfriends/models"
	"xfriends/utils"
	"xfriends/websocket"
)

const (
	defaultRelationshipLimit = 50
	maxRelationshipLimit     = 500
)

// relationshipQueries selects (id, nickname, avatar, updated_at) for each
// listing type; args is how many times the caller id is bound.
var relationshipQueries = map[models.RequestType]struct {
	sql  string
	args int
}{
	models.TypeFriends: {`
		SELECT u.id, u.nickname, u.avatar, f.updated_at
		FROM friendships f JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? AND f.status = 'accepted'`, 1},
	models.TypeFriendRequested: {`
		SELECT u.id, u.nickname, u.avatar, f.updated_at
		FROM friendships f JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? AND f.status = 'pending'`, 1},
	models.TypeFriendRequestedBy: {`
		SELECT u.id, u.nickname, u.avatar, f.updated_at
		FROM friendships f JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = 'pending'`, 1},
	models.TypeBlocked: {`
		SELECT u.id, u.nickname, u.avatar, f.updated_at
		FROM friendships f JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? AND f.status = 'blocked'`, 1},
	// users the caller blocked back are reported under blocked only
	models.TypeBlockedBy: {`
		SELECT u.id, u.nickname, u.avatar, f.updated_at
		FROM friendships f JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = 'blocked'
		AND NOT EXISTS (
			SELECT 1 FROM friendships b
			WHERE b.user_id = ? AND b.friend_id = f.user_id AND b.status = 'blocked'
		)`, 2},
}

func GetRelationships(c *gin.Context) {
	userID := middleware.GetUserID(c)

	reqType := models.RequestType(c.DefaultQuery("type", string(models.TypeFriends)))
	q, ok := relationshipQueries[reqType]
	if !ok {
		utils.BadRequest(c, "invalid relationship type")
		return
	}

	var orderCol string
	switch models.SortBy(c.DefaultQuery("sort_by", string(models.SortByUpdated))) {
	case models.SortByUpdated:
		orderCol = "f.updated_at"
	case models.SortByNickname:
		orderCol = "u.nickname"
	default:
		utils.BadRequest(c, "invalid sort_by")
		return
	}

	var orderDir string
	switch models.SortOrder(c.DefaultQuery("sort_order", string(models.SortAsc))) {
	case models.SortAsc:
		orderDir = "ASC"
	case models.SortDesc:
		orderDir = "DESC"
	default:
		utils.BadRequest(c, "invalid sort_order")
		return
	}

	limit, err := queryInt(c, "limit", defaultRelationshipLimit)
	if err != nil || limit <= 0 {
		utils.BadRequest(c, "invalid limit")
		return
	}
	if limit > maxRelationshipLimit {
		limit = maxRelationshipLimit
	}
	after, err := queryInt(c, "after", 0)
	if err != nil || after < 0 {
		utils.BadRequest(c, "invalid after")
		return
	}

	args := make([]interface{}, 0, q.args+2)
	for i := 0; i < q.args; i++ {
		args = append(args, userID)
	}
	// one extra row tells whether another page exists
	args = append(args, limit+1, after)

	stmt := fmt.Sprintf("%s ORDER BY %s %s, u.id ASC LIMIT ? OFFSET ?", q.sql, orderCol, orderDir)
	rows, err := database.DB.QueryContext(c, stmt, args...)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"function": "GetRelationships",
			"type":     reqType,
		}).Error("relationship query failed")
		utils.InternalError(c, "database error")
		return
	}
	defer rows.Close()

	records := []models.RelationshipRecord{}
	for rows.Next() {
		var r models.RelationshipRecord
		if err := rows.Scan(&r.User.UserID, &r.User.Nickname, &r.User.Avatar, &r.Updated); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"function": "GetRelationships",
				"type":     reqType,
			}).Error("relationship scan failed")
			utils.InternalError(c, "database error")
			return
		}
		r.User.Presence = models.PresenceOffline
		if websocket.IsOnline(r.User.UserID) {
			r.User.Presence = models.PresenceOnline
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		logrus.WithError(err).WithField("function", "GetRelationships").Error("relationship rows failed")
		utils.InternalError(c, "database error")
		return
	}

	resp := models.FriendsResponse{Relationships: records}
	if len(records) > limit {
		resp.Relationships = records[:limit]
		resp.NextAfter = strconv.Itoa(after + limit)
	}

	utils.Success(c, resp)
}

func UpdateRelationship(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.UpdateFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	action, err := models.ParseFriendAction(string(req.Action))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if req.UserID == userID {
		utils.BadRequest(c, "cannot change relationship with yourself")
		return
	}

	var exists bool
	err = database.DB.QueryRowContext(c, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", req.UserID).Scan(&exists)
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}
	if !exists {
		utils.NotFound(c, "user not found")
		return
	}

	if err := ApplyFriendAction(c, database.DB, userID, req.UserID, action); err != nil {
		var ae *ActionError
		if errors.As(err, &ae) {
			utils.Error(c, ae.Status, ae.Message)
			return
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"function": "UpdateRelationship",
			"user_id":  userID,
			"target":   req.UserID,
			"action":   action,
		}).Error("friend action failed")
		utils.InternalError(c, "failed to update relationship")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "UpdateRelationship",
		"user_id":  userID,
		"target":   req.UserID,
		"action":   action,
	}).Info("Relationship updated")

	websocket.SendToUser(userID, &models.Event{
		Event: models.EventRelationshipChanged,
		Data:  models.RelationshipChanged{UserID: req.UserID, Action: action},
	})
	websocket.SendToUser(req.UserID, &models.Event{
		Event: models.EventRelationshipChanged,
		Data:  models.RelationshipChanged{UserID: userID, Action: action},
	})

	utils.Success(c, nil)
}

// ActionError is a rejected friend action that maps to an HTTP status.
type ActionError struct {
	Status  int
	Message string
}

func (e *ActionError) Error() string {
	return e.Message
}

func conflict(msg string) error { return &ActionError{Status: http.StatusConflict, Message: msg} }
func notFound(msg string) error { return &ActionError{Status: http.StatusNotFound, Message: msg} }

