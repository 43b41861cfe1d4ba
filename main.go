package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"xfriends/config"
	"xfriends/database"
	"xfriends/router"
	"xfriends/websocket"
)

func main() {
	if err := config.Load(); err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	config.SetupLogging(config.Cfg.LogLevel)
	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Connect(config.Cfg.DBDriver, config.Cfg.DBDSN); err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.CreateTables(database.DB); err != nil {
		logrus.Fatalf("Failed to create tables: %v", err)
	}

	if err := os.MkdirAll(config.Cfg.UploadDir, 0755); err != nil {
		logrus.Fatalf("Failed to create upload directory: %v", err)
	}

	websocket.InitHub()

	r := router.Setup()

	logrus.WithField("addr", config.Cfg.ServerAddr).Info("Server starting")
	if err := r.Run(config.Cfg.ServerAddr); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
