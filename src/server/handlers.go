package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quote-streamer/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 1000
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	resp := gin.H{
		"status":            "ok",
		"subscribers":       s.deps.Registry.Len(),
		"live_keys":         s.deps.Liveness.Len(),
		"websocket_clients": s.wsClients.Load(),
		"uptime_seconds":    int64(time.Since(s.started).Seconds()),
	}
	if s.deps.Feed != nil {
		resp["generator_receivers"] = s.deps.Feed.Subscribers()
		resp["ticks"] = s.deps.Feed.Ticks()
	}
	if s.deps.Market != nil {
		resp["market_open"] = s.deps.Market.IsOpen(time.Now())
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	var symbols []models.Symbol
	if s.deps.Feed != nil {
		symbols = s.deps.Feed.Symbols()
	}
	c.JSON(http.StatusOK, gin.H{
		"symbols":                  symbols,
		"codec":                    s.Config.Transport.Codec,
		"interval_ms":              s.Config.Generator.IntervalMs,
		"liveness_timeout_seconds": s.Config.Liveness.TimeoutSeconds,
		"command_port":             s.Config.Transport.CommandPort,
		"data_port":                s.Config.Transport.DataPort,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getPrices(c *gin.Context) {
	c.JSON(http.StatusOK, s.LatestPrices())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSubscribers(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Registry.List())
}

// -----------------------------------------------------------------------------

func (s *APIServer) deleteSubscriber(c *gin.Context) {
	key, err := models.ParseSubscriberKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.deps.Liveness.Forget(key)
	if !s.deps.Registry.Stop(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no subscription for " + key.String()})
		return
	}
	s.Logger.Info("Subscription %s stopped via HTTP API", key)
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "key": key.String()})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSessions(c *gin.Context) {
	if s.deps.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session journal is disabled"})
		return
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := s.deps.Journal.RecentSessions(limit)
	if err != nil {
		s.Logger.Error("Reading sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sessions"})
		return
	}
	if events == nil {
		events = []models.MSessionEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultSessionLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if n > maxSessionLimit {
		n = maxSessionLimit
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func withoutUnknown(symbols []models.Symbol) []models.Symbol {
	out := make([]models.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s != models.Unknown {
			out = append(out, s)
		}
	}
	return out
}
