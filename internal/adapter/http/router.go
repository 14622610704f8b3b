package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"life-alignment/pkg/metrics"
)

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	AllowedOrigins string
	BodyLimit      int
	// ReadTimeout bounds reading a request; rendering is not covered by it.
	ReadTimeout time.Duration
}

// NewApp builds the fiber app with every route mounted.
func NewApp(h *Handler, cfg RouterConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "life-alignment",
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		// empty echoes whatever headers the preflight asks for
		AllowHeaders: "",
	}))
	app.Use(observe)

	app.Get("/", h.Info)
	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Post("/generate", h.Generate)
	return app
}

func observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
	}
	metrics.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
	return err
}
