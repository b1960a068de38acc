package server

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-content/internal/atlas"
	"github.com/any-hub/any-content/internal/engine"
	"github.com/any-hub/any-content/internal/fonts"
	"github.com/any-hub/any-content/internal/logging"
)

// ContentService describes the content operations exposed over HTTP. The
// engine satisfies it; tests inject fakes.
type ContentService interface {
	LoadAtlas(ctx context.Context, name string) (*atlas.AtlasData, error)
	UnloadAtlas(name string) (bool, error)
	FontStats(ctx context.Context, source fonts.FontSource, family string) ([]fonts.FontStats, error)
	Status() engine.Status
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger         *logrus.Logger
	Content        ContentService
	RequestTimeout time.Duration
}

const contextKeyRequestID = "_anycontent_request_id"

const defaultRequestTimeout = 10 * time.Second

// NewApp builds a Fiber application with request ID, access log and panic
// recovery middleware. Routes are registered separately.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Content == nil {
		return nil, errors.New("content service is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		UnescapePath:  true,
		JSONEncoder:   json.Marshal,
		JSONDecoder:   json.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	return app, nil
}

// Timeout 返回有效的请求等待时长，未配置时回退到默认值。
func (o AppOptions) Timeout() time.Duration {
	if o.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return o.RequestTimeout
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		fields := logging.RequestFields(reqID, c.Method(), c.Path(), status)
		entry := logger.WithFields(fields)
		switch {
		case err != nil:
			entry.WithError(err).Error("request failed")
		case status >= fiber.StatusInternalServerError:
			entry.Error("request served")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request served")
		default:
			entry.Debug("request served")
		}
		return err
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
