package server

import (
	"net/http"
	"time"

	"github.com/hargall/dlt645mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type commandResult struct {
	Success bool `json:"success"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	e.POST("/api/relay/trip", s.RelayTripHandler)
	e.POST("/api/relay/close", s.RelayCloseHandler)
	e.POST("/api/clock/date", s.ClockSyncHandler(domain.CLOCK_SYNC_DATE))
	e.POST("/api/clock/time", s.ClockSyncHandler(domain.CLOCK_SYNC_TIME))
	e.POST("/api/clock/broadcast", s.ClockSyncHandler(domain.CLOCK_SYNC_BROADCAST))

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) RelayTripHandler(c echo.Context) error {
	return s.meterCommand(c, domain.RelayControlRequest{Connect: false})
}

func (s *Server) RelayCloseHandler(c echo.Context) error {
	return s.meterCommand(c, domain.RelayControlRequest{Connect: true})
}

func (s *Server) ClockSyncHandler(scope domain.ClockSyncScope) echo.HandlerFunc {
	return func(c echo.Context) error {
		return s.meterCommand(c, domain.SyncClockRequest{Scope: scope})
	}
}

// meterCommand relays one control command through the master actor and
// reports whether the meter acknowledged it.
func (s *Server) meterCommand(c echo.Context, cmd domain.MeterControlRequest) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, cmd, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusBadGateway, commandResult{Success: false})
	}
	if response, ok := res.(domain.MeterControlResponse); ok && !response.HasResponseError() {
		return c.JSON(http.StatusOK, commandResult{Success: true})
	}
	return c.JSON(http.StatusBadGateway, commandResult{Success: false})
}
