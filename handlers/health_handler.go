package handlers

import (
	"net/http"
	"runtime"
	"time"

	"pollboard-backend/database"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthCheck handles GET /healthz.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// SystemStatus reports uptime and the database connection state.
func SystemStatus(c *gin.Context) {
	dbStatus := "ok"
	if database.DB == nil {
		dbStatus = "error"
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "error"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(startTime).String(),
		"go_version":    runtime.Version(),
		"num_goroutine": runtime.NumGoroutine(),
		"db_status":     dbStatus,
	})
}
