// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/match-slot-booking/internal/config"
	"github.com/iliyamo/match-slot-booking/internal/handler"
	"github.com/iliyamo/match-slot-booking/internal/middleware"
	"github.com/iliyamo/match-slot-booking/internal/model"
)

// Register mounts the whole HTTP surface on the Echo instance.
//
//	/healthz                          liveness probe
//	/v1/auth/*                        register / login
//	/v1/matches                       browse (public) + create (organizer)
//	/v1/matches/:id/availability      public capacity counters (cached)
//	/v1/matches/:id/locks             lock acquire / release
//	/v1/matches/:id/waitlist          waitlist join / leave
//	/v1/bookings/:id                  confirm / cancel
//	/v1/my-bookings                   caller's booking history
func Register(e *echo.Echo, cfg config.Config, hz *handler.HealthHandler, a *handler.AuthHandler, m *handler.MatchHandler, ch *handler.CheckoutHandler, rdb *redis.Client) {
	e.GET("/healthz", hz.Health)

	// Unauthenticated auth operations.
	authGrp := e.Group("/v1/auth")
	authGrp.POST("/register", a.Register)
	authGrp.POST("/login", a.Login)

	// Public browse endpoints.  Availability is read-heavy and safe to
	// serve a few seconds stale, so it goes behind the Redis cache.
	e.GET("/v1/matches", m.List)
	if rdb != nil {
		e.GET("/v1/matches/:id/availability", m.Availability,
			middleware.ResponseCache(config.LoadCacheConfig(), rdb))
	} else {
		e.GET("/v1/matches/:id/availability", m.Availability)
	}

	// Everything below needs a valid access token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.RequireRole(model.RolePlayer, model.RoleOrganizer))

	auth.GET("/me", a.Me)

	// Organizer-only match management.
	organizer := e.Group("/v1")
	organizer.Use(middleware.JWTAuth(cfg.JWTSecret))
	organizer.Use(middleware.RequireRole(model.RoleOrganizer))
	organizer.POST("/matches", m.Create)

	// Checkout flow.
	auth.POST("/matches/:id/locks", ch.AcquireLock)
	auth.DELETE("/matches/:id/locks/:lock_id", ch.ReleaseLock)
	auth.POST("/bookings/:id/confirm", ch.Confirm)
	auth.DELETE("/bookings/:id", ch.Cancel)

	// Waitlist.
	auth.POST("/matches/:id/waitlist", ch.JoinWaitlist)
	auth.DELETE("/matches/:id/waitlist", ch.LeaveWaitlist)

	auth.GET("/my-bookings", ch.MyBookings)
}
