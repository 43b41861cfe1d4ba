package handlers

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"xfriends/database"
	"xfriends/middleware"
	"xfriends/models"
	"xfriends/utils"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname" binding:"max=100"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var exists bool
	err := database.DB.QueryRowContext(c, "SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", req.Username).Scan(&exists)
	if err != nil {
		logrus.WithError(err).WithField("function", "Register").Error("username lookup failed")
		utils.InternalError(c, "database error")
		return
	}
	if exists {
		utils.Conflict(c, "username already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.InternalError(c, "failed to hash password")
		return
	}

	id := utils.GenerateUUID()
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = req.Username
	}
	now := time.Now()

	_, err = database.DB.ExecContext(c,
		"INSERT INTO users (id, username, nickname, avatar, password, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?, ?)",
		id, req.Username, nickname, string(hashedPassword), database.ToMillis(now), database.ToMillis(now),
	)
	if err != nil {
		logrus.WithError(err).WithField("function", "Register").Error("insert user failed")
		utils.InternalError(c, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(id)
	if err != nil {
		utils.InternalError(c, "failed to generate token")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "Register",
		"user_id":  id,
		"username": req.Username,
	}).Info("User registered")

	utils.Success(c, models.AuthResponse{
		Token: token,
		User: models.UserResponse{
			ID:        id,
			Username:  req.Username,
			Nickname:  nickname,
			CreatedAt: database.FromMillis(database.ToMillis(now)),
		},
	})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var user models.User
	var createdAt int64
	err := database.DB.QueryRowContext(c,
		"SELECT id, username, nickname, avatar, password, created_at FROM users WHERE username = ?",
		req.Username,
	).Scan(&user.ID, &user.Username, &user.Nickname, &user.Avatar, &user.Password, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		utils.Unauthorized(c, "invalid username or password")
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("function", "Login").Error("user lookup failed")
		utils.InternalError(c, "database error")
		return
	}
	user.CreatedAt = database.FromMillis(createdAt)

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		utils.InternalError(c, "failed to generate token")
		return
	}

	utils.Success(c, models.AuthResponse{
		Token: token,
		User:  *user.ToResponse(),
	})
}

func RefreshToken(c *gin.Context) {
	token, err := utils.GenerateToken(middleware.GetUserID(c))
	if err != nil {
		utils.InternalError(c, "failed to generate token")
		return
	}

	utils.Success(c, gin.H{"token": token})
}
