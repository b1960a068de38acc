// Package engine assembles the content subsystem once at startup: resolvers,
// the shared texture cache, the atlas loader and the font stats service. The
// resulting Engine is passed down explicitly; there is no global container.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/any-hub/any-content/internal/atlas"
	"github.com/any-hub/any-content/internal/config"
	"github.com/any-hub/any-content/internal/contenterr"
	"github.com/any-hub/any-content/internal/fonts"
	"github.com/any-hub/any-content/internal/logging"
	"github.com/any-hub/any-content/internal/pathresolver"
	"github.com/any-hub/any-content/internal/texture"
)

// Engine 持有整个内容子系统的依赖图，启动时构建一次后共享。
type Engine struct {
	AtlasResolver       *pathresolver.ContentResolver
	ContentFontResolver *pathresolver.ContentResolver
	SystemFontResolver  *pathresolver.ContentResolver
	Textures            *texture.Cache
	Atlases             *atlas.Loader
	Fonts               *fonts.StatsService

	concurrency int
	logger      logrus.FieldLogger
}

// New 按配置组装依赖图；fsys 通常为 afero.NewOsFs()，测试中可替换为内存文件系统。
func New(cfg config.GlobalConfig, fsys afero.Fs, logger logrus.FieldLogger) (*Engine, error) {
	if fsys == nil {
		return nil, contenterr.MissingDependency("engine.New", "fs")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	atlasResolver, err := pathresolver.NewAtlasResolver(fsys, cfg.ContentRoot, cfg.AtlasDirName)
	if err != nil {
		return nil, fmt.Errorf("atlas resolver: %w", err)
	}
	contentFonts, err := pathresolver.NewContentFontResolver(fsys, cfg.ContentRoot, cfg.FontDirName, cfg.FontExtension)
	if err != nil {
		return nil, fmt.Errorf("content font resolver: %w", err)
	}
	systemFonts, err := pathresolver.NewSystemFontResolver(fsys, cfg.SystemFontDir, cfg.FontExtension)
	if err != nil {
		return nil, fmt.Errorf("system font resolver: %w", err)
	}

	textureFactory, err := texture.NewFileFactory(fsys)
	if err != nil {
		return nil, err
	}
	textures := texture.NewCache(atlasResolver, logger)

	atlases, err := atlas.NewLoader(atlas.Deps{
		Textures:       textures,
		TextureFactory: textureFactory,
		Resolver:       atlasResolver,
		Decoder:        atlas.JSONDecoder{},
		Assembler:      atlas.DefaultAssembler{},
		FS:             fsys,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	introspector, err := fonts.NewSfntIntrospector(fsys)
	if err != nil {
		return nil, err
	}
	fontStats, err := fonts.NewStatsService(fonts.Deps{
		Introspector:    introspector,
		ContentResolver: contentFonts,
		SystemResolver:  systemFonts,
		FS:              fsys,
		Extension:       cfg.FontExtension,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	concurrency := cfg.PreloadConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Engine{
		AtlasResolver:       atlasResolver,
		ContentFontResolver: contentFonts,
		SystemFontResolver:  systemFonts,
		Textures:            textures,
		Atlases:             atlases,
		Fonts:               fontStats,
		concurrency:         concurrency,
		logger:              logger,
	}, nil
}

// LoadAtlas 在 ctx 截止前等待图集加载；ctx 结束时调用方放弃等待，但加载本身会继续完成。
// 仅接受图集目录内的相对名称，绝对路径与 .. 越界返回 Validation 错误；
// 进程内需要绝对路径时直接使用 Atlases.Load。
func (e *Engine) LoadAtlas(ctx context.Context, name string) (*atlas.AtlasData, error) {
	if err := e.checkAtlasName("engine.LoadAtlas", name); err != nil {
		return nil, err
	}
	return await(ctx, func() (*atlas.AtlasData, error) {
		return e.Atlases.Load(name)
	})
}

// UnloadAtlas 释放图集纹理，返回纹理是否曾被缓存；名称规则同 LoadAtlas。
func (e *Engine) UnloadAtlas(name string) (bool, error) {
	if err := e.checkAtlasName("engine.UnloadAtlas", name); err != nil {
		return false, err
	}
	return e.Atlases.Unload(name), nil
}

func (e *Engine) checkAtlasName(op, name string) error {
	return pathresolver.ValidateRelativeName(op, e.AtlasResolver.ResolveDirPath(), name)
}

// FontStats 按来源查询字体家族信息，等待语义同 LoadAtlas。
func (e *Engine) FontStats(ctx context.Context, source fonts.FontSource, family string) ([]fonts.FontStats, error) {
	return await(ctx, func() ([]fonts.FontStats, error) {
		if source == fonts.SourceSystem {
			return e.Fonts.GetSystemStatsForFontFamily(family)
		}
		return e.Fonts.GetContentStatsForFontFamily(family)
	})
}

// Preload 以有限并发预加载配置中声明的内容，返回首个错误；已开始的加载会执行完毕。
func (e *Engine) Preload(ctx context.Context, items []config.PreloadConfig) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return e.preloadOne(item)
		})
	}
	return g.Wait()
}

func (e *Engine) preloadOne(item config.PreloadConfig) error {
	fields := logging.ContentFields(item.Kind, item.Name, false)
	fields["action"] = "preload"

	switch item.Kind {
	case config.KindAtlas:
		if _, err := e.Atlases.Load(item.Name); err != nil {
			return fmt.Errorf("preload atlas %s: %w", item.Name, err)
		}
	case config.KindFont:
		stats, err := e.Fonts.GetContentStatsForFontFamily(item.Name)
		if err != nil {
			return fmt.Errorf("preload font %s: %w", item.Name, err)
		}
		fields["files"] = len(stats)
		if len(stats) == 0 {
			e.logger.WithFields(fields).Warn("font family has no files")
			return nil
		}
	default:
		return contenterr.Validation("engine.Preload", item.Kind, "unsupported preload kind")
	}

	e.logger.WithFields(fields).Info("content preloaded")
	return nil
}

// Status 是引擎当前状态的快照，供诊断接口输出。
type Status struct {
	ContentRoot      string   `json:"content_root"`
	AtlasDir         string   `json:"atlas_dir"`
	ContentFontDir   string   `json:"content_font_dir"`
	SystemFontDir    string   `json:"system_font_dir"`
	CachedTextures   int      `json:"cached_textures"`
	TextureKeys      []string `json:"texture_keys"`
	PreloadWorkerCap int      `json:"preload_concurrency"`
}

// Status 返回目录配置与纹理缓存概况，键按字典序排列。
func (e *Engine) Status() Status {
	keys := e.Textures.Keys()
	sort.Strings(keys)
	return Status{
		ContentRoot:      e.AtlasResolver.RootDirectory(),
		AtlasDir:         e.AtlasResolver.ResolveDirPath(),
		ContentFontDir:   e.ContentFontResolver.ResolveDirPath(),
		SystemFontDir:    e.SystemFontResolver.ResolveDirPath(),
		CachedTextures:   len(keys),
		TextureKeys:      keys,
		PreloadWorkerCap: e.concurrency,
	}
}

// Close 释放全部缓存纹理，返回释放数量。
func (e *Engine) Close() int {
	return e.Textures.UnloadAll()
}

type result[T any] struct {
	value T
	err   error
}

func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan result[T], 1)
	go func() {
		v, err := fn()
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
