package routes

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-content/internal/atlas"
	"github.com/any-hub/any-content/internal/fonts"
	"github.com/any-hub/any-content/internal/server"
	"github.com/any-hub/any-content/internal/version"
)

// RegisterContentRoutes 暴露 /-/status、/-/atlas 与 /-/fonts 诊断接口；
// 图集名称可包含子目录，例如 /-/atlas/ui/Hero。
// 图集名称必须位于图集目录之内，绝对路径与 .. 越界返回 400。
// 请求在 RequestTimeout 内等待加载结果；超时只放弃等待，不取消加载本身。
func RegisterContentRoutes(app *fiber.App, opts server.AppOptions) {
	if app == nil || opts.Content == nil || opts.Logger == nil {
		return
	}
	h := &contentHandlers{content: opts.Content, logger: opts.Logger, opts: opts}

	app.Get("/-/status", h.status)
	app.Get("/-/atlas/*", h.loadAtlas)
	app.Delete("/-/atlas/*", h.unloadAtlas)
	app.Get("/-/fonts/:family", h.fontStats)
}

type contentHandlers struct {
	content server.ContentService
	logger  *logrus.Logger
	opts    server.AppOptions
}

type statusPayload struct {
	Version string `json:"version"`
	Engine  any    `json:"engine"`
}

type atlasPayload struct {
	Name        string                 `json:"name"`
	DirPath     string                 `json:"dir_path"`
	FilePath    string                 `json:"file_path"`
	Texture     texturePayload         `json:"texture"`
	Width       int                    `json:"width"`
	Height      int                    `json:"height"`
	Names       []string               `json:"names"`
	SubTextures []atlas.SubTextureData `json:"sub_textures"`
}

type texturePayload struct {
	ID        string `json:"id"`
	FilePath  string `json:"file_path"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  uint64 `json:"checksum"`
}

type fontsPayload struct {
	Family string            `json:"family"`
	Source string            `json:"source"`
	Files  []fonts.FontStats `json:"files"`
}

func (h *contentHandlers) status(c fiber.Ctx) error {
	return c.JSON(statusPayload{
		Version: version.Full(),
		Engine:  h.content.Status(),
	})
}

func (h *contentHandlers) loadAtlas(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.opts.Timeout())
	defer cancel()

	data, err := h.content.LoadAtlas(ctx, c.Params("*"))
	if err != nil {
		return server.RenderError(c, h.logger, err)
	}
	return c.JSON(encodeAtlas(data))
}

func (h *contentHandlers) unloadAtlas(c fiber.Ctx) error {
	name := c.Params("*")
	unloaded, err := h.content.UnloadAtlas(name)
	if err != nil {
		return server.RenderError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"name":     name,
		"unloaded": unloaded,
	})
}

func (h *contentHandlers) fontStats(c fiber.Ctx) error {
	source, ok := parseSource(c.Query("source"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported_font_source"})
	}
	family := c.Params("family")

	ctx, cancel := context.WithTimeout(c.Context(), h.opts.Timeout())
	defer cancel()

	stats, err := h.content.FontStats(ctx, source, family)
	if err != nil {
		return server.RenderError(c, h.logger, err)
	}
	if stats == nil {
		stats = []fonts.FontStats{}
	}
	return c.JSON(fontsPayload{
		Family: family,
		Source: string(source),
		Files:  stats,
	})
}

func parseSource(raw string) (fonts.FontSource, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "content", "app", "appcontent":
		return fonts.SourceAppContent, true
	case "system":
		return fonts.SourceSystem, true
	default:
		return "", false
	}
}

func encodeAtlas(a *atlas.AtlasData) atlasPayload {
	width, height := a.Extent()
	payload := atlasPayload{
		Name:        a.Name,
		DirPath:     a.DirPath,
		FilePath:    a.FilePath,
		Width:       width,
		Height:      height,
		Names:       a.Names(),
		SubTextures: a.SubTextures(),
	}
	if a.Texture != nil {
		payload.Texture = texturePayload{
			ID:        a.Texture.ID.String(),
			FilePath:  a.Texture.FilePath,
			SizeBytes: a.Texture.SizeBytes,
			Checksum:  a.Texture.Checksum,
		}
	}
	return payload
}
