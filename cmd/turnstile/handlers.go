package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fakacrm/turnstile/automod/verify"

	"github.com/labstack/echo/v4"
)

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

type PendingOutput struct {
	Count   int                          `json:"count"`
	Pending []verify.PendingVerification `json:"pending"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	// middleware (slog-echo, metrics) may already have handled this error
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var errorMessage string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		slog.Warn("turnstile-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "turnstile", Message: errorMessage})
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	if s.rdb != nil {
		if err := s.rdb.Ping(c.Request().Context()).Err(); err != nil {
			slog.Error("health check: redis unreachable", "err", err)
			return c.JSON(http.StatusServiceUnavailable, GenericStatus{Status: "error", Daemon: "turnstile", Message: "redis unreachable"})
		}
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "turnstile"})
}

// Lists members currently awaiting verification, optionally filtered by the "chat" query parameter.
func (s *Server) HandlePending(c echo.Context) error {
	pending := s.engine.Pending()

	if raw := c.QueryParam("chat"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid chat id")
		}
		filtered := []verify.PendingVerification{}
		for _, p := range pending {
			if p.OriginChat == chatID {
				filtered = append(filtered, p)
			}
		}
		pending = filtered
	}
	if pending == nil {
		pending = []verify.PendingVerification{}
	}

	return c.JSON(http.StatusOK, PendingOutput{
		Count:   len(pending),
		Pending: pending,
	})
}
