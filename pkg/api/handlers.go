// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package api exposes the coordinator over http.
package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/coordinator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

const (
	traceIDHeader     = "X-Trace-Id"
	retryAfterSeconds = "1"
)

type Handler struct {
	coordinator *coordinator.Coordinator
}

func NewHandler(c *coordinator.Coordinator) *Handler {
	return &Handler{coordinator: c}
}

// NewApp builds the fiber app with every route registered. registry may be nil.
func NewApp(c *coordinator.Coordinator, registry *prometheus.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	RegisterRoutes(app, NewHandler(c))
	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	return app
}

func RegisterRoutes(app *fiber.App, h *Handler) {
	v1 := app.Group("/v1")

	mm := v1.Group("/matchmaking")
	mm.Post("/join", h.Join)
	mm.Post("/cancel", h.Cancel)
	mm.Get(fmt.Sprintf("/:%s/stats", models.GameKindPathParameter), h.QueueStats)
	mm.Get(fmt.Sprintf("/:%s/players/:%s", models.GameKindPathParameter, models.PlayerIDPathParameter), h.Poll)

	sessions := v1.Group("/sessions")
	sessions.Get(fmt.Sprintf("/:%s", models.SessionIDPathParameter), h.Session)
	sessions.Post(fmt.Sprintf("/:%s/moves", models.SessionIDPathParameter), h.SubmitMove)
	sessions.Post(fmt.Sprintf("/:%s/resign", models.SessionIDPathParameter), h.Resign)
	sessions.Post(fmt.Sprintf("/:%s/leave", models.SessionIDPathParameter), h.Leave)

	v1.Get(fmt.Sprintf("/ratings/:%s/:%s", models.PlayerIDPathParameter, models.GameKindPathParameter), h.Rating)
	v1.Get(fmt.Sprintf("/players/:%s/sessions", models.PlayerIDPathParameter), h.History)
}

// ErrorHandler maps domain errors onto status codes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{ErrorCode: fiberErr.Code, ErrorMessage: fiberErr.Message})
	}

	status := models.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	if models.IsRetryable(err) {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(status).JSON(ErrorResponse{ErrorCode: models.ErrorCode(err), ErrorMessage: err.Error()})
}

func newScope(c *fiber.Ctx, name string) *envelope.Scope {
	return envelope.NewRootScope(c.UserContext(), name, c.Get(traceIDHeader))
}

func parseBody(c *fiber.Ctx, out interface{ Validate() error }) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("malformed body: %v: %w", err, models.ErrInvalidRequest)
	}
	return out.Validate()
}

func (h *Handler) Join(c *fiber.Ctx) error {
	scope := newScope(c, "api.Join")
	defer scope.Finish()

	var request QueueRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	result, err := h.coordinator.Join(scope, request.PlayerID, request.GameKind)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(newQueueResponse(result))
}

func (h *Handler) Cancel(c *fiber.Ctx) error {
	scope := newScope(c, "api.Cancel")
	defer scope.Finish()

	var request QueueRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	removed, err := h.coordinator.Cancel(scope, request.PlayerID, request.GameKind)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"removed": removed})
}

func (h *Handler) Poll(c *fiber.Ctx) error {
	scope := newScope(c, "api.Poll")
	defer scope.Finish()

	request := QueueRequest{
		PlayerID: c.Params(models.PlayerIDPathParameter),
		GameKind: c.Params(models.GameKindPathParameter),
	}
	if err := request.Validate(); err != nil {
		return err
	}
	result, err := h.coordinator.Poll(scope, request.PlayerID, request.GameKind)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(newQueueResponse(result))
}

func (h *Handler) QueueStats(c *fiber.Ctx) error {
	gameKind := c.Params(models.GameKindPathParameter)
	stats := h.coordinator.QueueStats(gameKind)
	return c.Status(fiber.StatusOK).JSON(QueueStatsResponse{
		GameKind:      gameKind,
		Players:       stats.Players,
		AvgWaitTimeMs: durationMs(stats.AvgWait),
	})
}

func (h *Handler) SubmitMove(c *fiber.Ctx) error {
	scope := newScope(c, "api.SubmitMove")
	defer scope.Finish()

	var request MoveRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	result, err := h.coordinator.SubmitMove(scope, c.Params(models.SessionIDPathParameter), request.PlayerID, request.Payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *Handler) Resign(c *fiber.Ctx) error {
	scope := newScope(c, "api.Resign")
	defer scope.Finish()

	var request PlayerRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	result, err := h.coordinator.Resign(scope, c.Params(models.SessionIDPathParameter), request.PlayerID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *Handler) Leave(c *fiber.Ctx) error {
	scope := newScope(c, "api.Leave")
	defer scope.Finish()

	var request PlayerRequest
	if err := parseBody(c, &request); err != nil {
		return err
	}
	result, err := h.coordinator.Leave(scope, c.Params(models.SessionIDPathParameter), request.PlayerID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *Handler) Session(c *fiber.Ctx) error {
	scope := newScope(c, "api.Session")
	defer scope.Finish()

	view, err := h.coordinator.Session(scope, c.Params(models.SessionIDPathParameter))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *Handler) Rating(c *fiber.Ctx) error {
	scope := newScope(c, "api.Rating")
	defer scope.Finish()

	record, err := h.coordinator.Rating(scope, c.Params(models.PlayerIDPathParameter), c.Params(models.GameKindPathParameter))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(newRatingResponse(record))
}

func (h *Handler) History(c *fiber.Ctx) error {
	scope := newScope(c, "api.History")
	defer scope.Finish()

	limit := constants.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > constants.MaxHistoryLimit {
			return fmt.Errorf("limit must be within 1..%d: %w", constants.MaxHistoryLimit, models.ErrInvalidRequest)
		}
		limit = parsed
	}

	sessions, err := h.coordinator.History(scope, c.Params(models.PlayerIDPathParameter), limit)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": sessions})
}
