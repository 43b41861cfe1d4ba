package handlers

import (
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"xfriends/config"
	"xfriends/database"
	"xfriends/middleware"
	"xfriends/models"
	"xfriends/utils"
)

const defaultSearchLimit = 100

type UpdateUserRequest struct {
	Nickname string `json:"nickname" binding:"max=100"`
	Avatar   string `json:"avatar" binding:"max=255"`
}

func GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var user models.User
	var createdAt, updatedAt int64
	err := database.DB.QueryRowContext(c,
		"SELECT id, username, nickname, avatar, created_at, updated_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Username, &user.Nickname, &user.Avatar, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		utils.NotFound(c, "user not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}
	user.CreatedAt = database.FromMillis(createdAt)
	user.UpdatedAt = database.FromMillis(updatedAt)

	utils.Success(c, user.ToResponse())
}

func UpdateCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	_, err := database.DB.ExecContext(c,
		"UPDATE users SET nickname = COALESCE(NULLIF(?, ''), nickname), avatar = COALESCE(NULLIF(?, ''), avatar), updated_at = ? WHERE id = ?",
		strings.TrimSpace(req.Nickname), req.Avatar, database.ToMillis(time.Now()), userID,
	)
	if err != nil {
		utils.InternalError(c, "failed to update user")
		return
	}

	GetCurrentUser(c)
}

func UploadAvatar(c *gin.Context) {
	userID := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		utils.BadRequest(c, "no file uploaded")
		return
	}
	defer file.Close()

	maxSize := int64(2 * 1024 * 1024)
	if header.Size > maxSize {
		utils.BadRequest(c, "avatar too large (max 2MB)")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	allowedTypes := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	if !allowedTypes[mimeType] {
		utils.BadRequest(c, "avatar must be an image (jpeg, png, gif, webp)")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	filename := utils.GenerateUUID() + ext
	uploadPath := filepath.Join(config.Cfg.UploadDir, filename)

	out, err := os.Create(uploadPath)
	if err != nil {
		logrus.WithError(err).WithField("function", "UploadAvatar").Error("create avatar file failed")
		utils.InternalError(c, "failed to save file")
		return
	}
	defer out.Close()

	if _, err = io.Copy(out, file); err != nil {
		utils.InternalError(c, "failed to save file")
		return
	}

	avatarURL := "/files/" + filename
	_, err = database.DB.ExecContext(c,
		"UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?",
		avatarURL, database.ToMillis(time.Now()), userID,
	)
	if err != nil {
		utils.InternalError(c, "failed to update avatar")
		return
	}

	utils.Success(c, gin.H{"avatar": avatarURL})
}

// SearchUsers matches nicknames by substring. The caller is included and
// flagged with is_current_user; filtering is left to the client.
func SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("nickname"))
	if query == "" {
		utils.BadRequest(c, "nickname is required")
		return
	}

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		utils.BadRequest(c, "invalid offset")
		return
	}
	limit, err := queryInt(c, "limit", defaultSearchLimit)
	if err != nil || limit <= 0 {
		utils.BadRequest(c, "invalid limit")
		return
	}
	if limit > config.Cfg.SearchMaxLimit {
		limit = config.Cfg.SearchMaxLimit
	}

	userID := middleware.GetUserID(c)
	pattern := "%" + escapeLike(query) + "%"

	var total int
	err = database.DB.QueryRowContext(c,
		"SELECT COUNT(*) FROM users WHERE nickname LIKE ? ESCAPE '!'",
		pattern,
	).Scan(&total)
	if err != nil {
		logrus.WithError(err).WithField("function", "SearchUsers").Error("count failed")
		utils.InternalError(c, "database error")
		return
	}

	rows, err := database.DB.QueryContext(c, `
		SELECT id, nickname, avatar FROM users
		WHERE nickname LIKE ? ESCAPE '!'
		ORDER BY nickname, id
		LIMIT ? OFFSET ?
	`, pattern, limit, offset)
	if err != nil {
		logrus.WithError(err).WithField("function", "SearchUsers").Error("query failed")
		utils.InternalError(c, "database error")
		return
	}
	defer rows.Close()

	users := []models.SearchUser{}
	for rows.Next() {
		var u models.SearchUser
		if err := rows.Scan(&u.UserID, &u.Nickname, &u.Avatar); err != nil {
			logrus.WithError(err).WithField("function", "SearchUsers").Error("scan failed")
			utils.InternalError(c, "database error")
			return
		}
		u.IsCurrentUser = u.UserID == userID
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		logrus.WithError(err).WithField("function", "SearchUsers").Error("rows failed")
		utils.InternalError(c, "database error")
		return
	}

	utils.Success(c, models.SearchUsersResponse{
		Users:      users,
		Offset:     offset,
		TotalCount: total,
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
