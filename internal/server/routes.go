package server

import (
	"net/http"
	"time"

	"github.com/danmuck/wlboot/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func (s *Status) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		snap := s.tracker.Snapshot()
		status := http.StatusOK
		if !s.tracker.Ready() {
			status = http.StatusServiceUnavailable
		}
		body := gin.H{
			"ready":     status == http.StatusOK,
			"state":     snap.State,
			"remaining": snap.Remaining,
		}
		if snap.Error != "" {
			body["error"] = snap.Error
		}
		c.JSON(status, body)
	})

	views := s.router.Group("/", s.guard)

	views.GET("/globals", func(c *gin.Context) {
		snap := s.tracker.Snapshot()
		all := c.Query("all") == "true"
		globals := make([]session.GlobalEntry, 0, len(snap.Globals))
		for _, g := range snap.Globals {
			if g.Removed && !all {
				continue
			}
			globals = append(globals, g)
		}
		c.JSON(http.StatusOK, gin.H{"globals": globals})
	})

	views.GET("/bindings", func(c *gin.Context) {
		snap := s.tracker.Snapshot()
		bindings := snap.Bindings
		if bindings == nil {
			bindings = []session.Binding{}
		}
		c.JSON(http.StatusOK, gin.H{
			"bindings": bindings,
			"pending":  snap.Pending,
			"pongs":    snap.Pongs,
		})
	})

	views.GET("/stats", func(c *gin.Context) {
		snap := s.tracker.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"stats":        snap.Stats,
			"parse_errors": snap.ParseErrors,
			"updated_at":   snap.UpdatedAt,
		})
	})
}
