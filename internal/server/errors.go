package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-content/internal/contenterr"
)

// StatusForError 把内容错误类别映射为 HTTP 状态码。
func StatusForError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	switch contenterr.KindOf(err) {
	case contenterr.KindValidation:
		return fiber.StatusBadRequest
	case contenterr.KindNotFound, contenterr.KindLoadAtlas:
		return fiber.StatusNotFound
	case contenterr.KindCorrupt:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// errorCode 是响应体中的机器可读错误码。
func errorCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if kind := contenterr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}

// RenderError 输出统一的 JSON 错误响应并记录日志。
func RenderError(c fiber.Ctx, logger *logrus.Logger, err error) error {
	status := StatusForError(err)
	logger.WithFields(logrus.Fields{
		"action":     "render_error",
		"request_id": RequestID(c),
		"status":     status,
	}).WithError(err).Warn("content request failed")

	return c.Status(status).JSON(fiber.Map{
		"error":   errorCode(err),
		"message": err.Error(),
	})
}
