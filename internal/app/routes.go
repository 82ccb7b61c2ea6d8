package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/recordsvc/internal/config"
	"github.com/simp-lee/recordsvc/internal/pkg"
)

const (
	healthzPath = "/healthz"
	readyzPath  = "/readyz"
)

// eventsStatus is the part of the event subscriber readiness looks at.
type eventsStatus interface {
	Connected() bool
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	// Ready is flipped on once the server is listening and off at shutdown.
	Ready *atomic.Bool
	// Events is nil when the event subscriber is disabled.
	Events eventsStatus
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}

	r.GET(healthzPath, healthzHandler())
	r.GET(readyzPath, readyzHandler(deps))

	api := r.Group("/api/v1")
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api)
	}

	r.NoRoute(noRouteHandler())
	r.NoMethod(noMethodHandler())

	return nil
}

// healthzHandler reports liveness: the process is up and serving.
func healthzHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// readyzHandler reports whether the app should receive traffic. It requires
// the ready flag and a database ping; the event subscriber is reported but a
// reconnecting NATS link does not fail readiness.
func readyzHandler(deps *RouteDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		components := gin.H{}

		if deps.Ready == nil || !deps.Ready.Load() {
			status = "unavailable"
			code = http.StatusServiceUnavailable
			components["server"] = "starting"
		} else {
			components["server"] = "ok"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := config.PingDatabase(ctx, deps.DB); err != nil {
			status = "unavailable"
			code = http.StatusServiceUnavailable
			components["database"] = "error"
		} else {
			components["database"] = "ok"
		}

		if deps.Events != nil {
			if deps.Events.Connected() {
				components["events"] = "ok"
			} else {
				components["events"] = "reconnecting"
			}
		}

		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found", Data: nil})
	}
}

func noMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, pkg.Response{Code: http.StatusMethodNotAllowed, Message: "method not allowed", Data: nil})
	}
}
