package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"life-alignment/internal/model"
	"life-alignment/internal/usecase"
)

// Generator builds and delivers one report.
type Generator interface {
	Generate(ctx context.Context, payload map[string]interface{}, mode model.Mode) (*usecase.Outcome, error)
}

type Handler struct {
	generator   Generator
	defaultMode model.Mode
	log         *zap.Logger
}

func NewHandler(g Generator, defaultMode model.Mode, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultMode == "" {
		defaultMode = model.ModeLenient
	}
	return &Handler{generator: g, defaultMode: defaultMode, log: log.Named("http")}
}

// Generate handles POST /generate. The body must be a JSON object with an
// email; ?mode=strict|lenient overrides the configured validation mode.
func (h *Handler) Generate(c *fiber.Ctx) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(c.Body(), &payload); err != nil || payload == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "detail": "Bad JSON"})
	}
	if model.EmailFrom(payload) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "detail": "Missing email"})
	}

	mode := h.defaultMode
	if q := c.Query("mode"); q != "" {
		m, err := model.ParseMode(q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "detail": err.Error()})
		}
		mode = m
	}

	out, err := h.generator.Generate(c.UserContext(), payload, mode)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":        true,
		"report_id": out.ReportID.String(),
		"emailed":   out.Emailed,
		"warnings":  len(out.Warnings),
	})
}

// fail maps pipeline errors to responses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrMissingEmail):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "detail": "Missing email"})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"ok":       false,
			"detail":   "Invalid submission",
			"problems": verr.Problems,
		})
	case errors.Is(err, usecase.ErrDelivery):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"ok": false, "detail": "Email delivery failed"})
	default:
		h.log.Error("report generation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "detail": "Report generation failed"})
	}
}

// Info handles GET /.
func (h *Handler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":        true,
		"service":   "life-alignment",
		"endpoints": []string{"POST /generate", "GET /healthz", "GET /metrics"},
	})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
