// Package testutil boots the backend globals against a throwaway SQLite
// database for tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"xfriends/config"
	"xfriends/database"
	"xfriends/websocket"
)

// Setup points config.Cfg, database.DB and websocket.HubInstance at fresh
// test instances and restores them when t finishes.
func Setup(t testing.TB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logrus.SetLevel(logrus.WarnLevel)

	prevCfg, prevDB, prevHub := config.Cfg, database.DB, websocket.HubInstance

	dir := t.TempDir()
	config.Cfg = &config.Config{
		DBDriver:       "sqlite",
		DBDSN:          filepath.Join(dir, "xfriends.db"),
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		UploadDir:      dir,
		CORSOrigins:    []string{"http://localhost:3000"},
		SearchInterval: time.Second,
		SearchMaxLimit: 100,
		LogLevel:       "warn",
	}

	require.NoError(t, database.Connect(config.Cfg.DBDriver, config.Cfg.DBDSN))
	require.NoError(t, database.CreateTables(database.DB))
	websocket.InitHub()

	t.Cleanup(func() {
		websocket.HubInstance.Stop()
		database.Close()
		config.Cfg, database.DB, websocket.HubInstance = prevCfg, prevDB, prevHub
	})
}
