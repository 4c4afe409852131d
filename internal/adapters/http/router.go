// Package http wires the gin router: the websocket upgrade endpoint, the
// live-channel API, stats reporting and the metrics scrape target.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/talkiehq/talkie/internal/adapters/ws"
	"github.com/talkiehq/talkie/internal/config"
	"github.com/talkiehq/talkie/internal/domain"
	"github.com/talkiehq/talkie/internal/hub"
)

func SetupRouter(ctx context.Context, cfg *config.Config, h *hub.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	wsHandler := &ws.Handler{Hub: h, ReadLimit: cfg.ReadLimit}
	r.GET("/ws", func(c *gin.Context) {
		wsHandler.Handle(ctx, c)
	})

	start := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(start).Seconds(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/channels", listChannels(h))
	api.GET("/channels/:id", getChannel(h))
	api.POST("/channels", createChannel(h))
	api.DELETE("/channels/:id", deleteChannel(h))
	api.GET("/channels/:id/users", channelUsers(h))
	api.GET("/stats", stats(h))

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func listChannels(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		channels := h.Directory.ListAll()
		c.JSON(http.StatusOK, gin.H{"success": true, "data": channels, "count": len(channels)})
	}
}

func getChannel(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := h.Directory.Info(domain.ChannelID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Channel not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
	}
}

type createChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func createChannel(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Channel name is required"})
			return
		}
		ch := h.Directory.Create(strings.TrimSpace(req.Name), req.Description)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"id":          ch.ID,
			"name":        ch.Name,
			"description": ch.Description,
		}})
	}
}

func deleteChannel(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.Directory.Delete(domain.ChannelID(c.Param("id"))) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Channel not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Channel deleted successfully"})
	}
}

func channelUsers(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		users := h.Directory.Members(domain.ChannelID(c.Param("id")))
		c.JSON(http.StatusOK, gin.H{"success": true, "data": users, "count": len(users)})
	}
}

func stats(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": h.Stats()})
	}
}
