package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"xfriends/utils"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "user_id"

var (
	ErrMissingToken  = errors.New("missing authorization header")
	ErrMalformedAuth = errors.New("invalid authorization header format")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// TokenSource says where Authenticate may find the access token.
type TokenSource int

const (
	// FromHeader accepts only "Authorization: Bearer <token>".
	FromHeader TokenSource = iota
	// FromHeaderOrQuery also accepts ?token=, for websocket upgrades that
	// cannot set headers from a browser.
	FromHeaderOrQuery
)

// Authenticate resolves the caller's user id from the request. The returned
// error is one of the Err* values above and is safe to show to the client.
func Authenticate(c *gin.Context, src TokenSource) (string, error) {
	token, err := requestToken(c, src)
	if err != nil {
		return "", err
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Authenticate",
			"error":    err.Error(),
		}).Debug("Token rejected")
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func requestToken(c *gin.Context, src TokenSource) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if src == FromHeaderOrQuery {
			if token := c.Query("token"); token != "" {
				return token, nil
			}
		}
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", ErrMalformedAuth
	}
	return token, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller under ContextUserID.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := Authenticate(c, FromHeader)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "AuthMiddleware",
				"path":      c.Request.URL.Path,
				"client_ip": c.ClientIP(),
				"reason":    err.Error(),
			}).Debug("Request rejected")
			utils.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		SetUserID(c, userID)
		c.Next()
	}
}

func SetUserID(c *gin.Context, userID string) {
	c.Set(ContextUserID, userID)
}

func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
