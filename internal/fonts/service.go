// Package fonts answers "which files make up font family X" for the bundled
// content font directory and the host system font directory. Results are
// memoized per family for the lifetime of a StatsService; concurrent requests
// for the same family share a single directory scan.
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/any-content/internal/contenterr"
	"github.com/any-hub/any-content/internal/pathresolver"
)

// Deps 汇总 StatsService 的协作者；Extension 为空时使用 .ttf，Logger 可选。
type Deps struct {
	Introspector    Introspector
	ContentResolver pathresolver.Resolver
	SystemResolver  pathresolver.Resolver
	FS              afero.Fs
	Extension       string
	Logger          logrus.FieldLogger
}

// StatsService 按家族名称扫描字体目录并记忆结果。
type StatsService struct {
	introspector Introspector
	resolvers    map[FontSource]pathresolver.Resolver
	fs           afero.Fs
	extension    string
	logger       logrus.FieldLogger

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[FontSource]map[string][]FontStats
}

// NewStatsService 在任何 IO 之前校验依赖，缺失时返回指明参数名的 Validation 错误。
func NewStatsService(deps Deps) (*StatsService, error) {
	const op = "fonts.NewStatsService"
	switch {
	case deps.Introspector == nil:
		return nil, contenterr.MissingDependency(op, "introspector")
	case deps.ContentResolver == nil:
		return nil, contenterr.MissingDependency(op, "contentPathResolver")
	case deps.SystemResolver == nil:
		return nil, contenterr.MissingDependency(op, "systemPathResolver")
	case deps.FS == nil:
		return nil, contenterr.MissingDependency(op, "fs")
	}

	extension := deps.Extension
	if extension == "" {
		extension = pathresolver.FontExtension
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &StatsService{
		introspector: deps.Introspector,
		resolvers: map[FontSource]pathresolver.Resolver{
			SourceAppContent: deps.ContentResolver,
			SourceSystem:     deps.SystemResolver,
		},
		fs:        deps.FS,
		extension: extension,
		logger:    logger,
		memo: map[FontSource]map[string][]FontStats{
			SourceAppContent: {},
			SourceSystem:     {},
		},
	}, nil
}

// GetContentStatsForFontFamily 返回应用内容字体目录中属于 family 的全部字体文件。
// 结果保持目录列举顺序；首次调用后同一 family 不再扫描目录。
func (s *StatsService) GetContentStatsForFontFamily(family string) ([]FontStats, error) {
	return s.statsFor(SourceAppContent, family)
}

// GetSystemStatsForFontFamily 与内容目录版本相同，但扫描宿主系统字体目录。
func (s *StatsService) GetSystemStatsForFontFamily(family string) ([]FontStats, error) {
	return s.statsFor(SourceSystem, family)
}

func (s *StatsService) statsFor(source FontSource, family string) ([]FontStats, error) {
	if family == "" {
		return nil, contenterr.Validation("fonts.GetStatsForFontFamily", "family", "the parameter must not be null or empty")
	}
	if stats, ok := s.lookup(source, family); ok {
		return cloneStats(stats), nil
	}

	v, err, _ := s.group.Do(string(source)+"\x00"+family, func() (interface{}, error) {
		if stats, ok := s.lookup(source, family); ok {
			return stats, nil
		}
		stats, err := s.scan(source, family)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.memo[source][family] = stats
		s.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneStats(v.([]FontStats)), nil
}

func (s *StatsService) lookup(source FontSource, family string) ([]FontStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.memo[source][family]
	return stats, ok
}

func (s *StatsService) scan(source FontSource, family string) ([]FontStats, error) {
	dir := s.resolvers[source].ResolveDirPath()
	files, err := s.listFontFiles(dir)
	if err != nil {
		return nil, err
	}

	stats := make([]FontStats, 0, len(files))
	skipped := 0
	for _, path := range files {
		name, err := s.introspector.FamilyName(path)
		if err != nil {
			// 解析失败的文件被静默排除，调用方看到的效果与文件不存在相同。
			skipped++
			s.logger.WithFields(logrus.Fields{
				"action": "font_stats",
				"path":   path,
			}).WithError(err).Debug("font family unreadable, skipped")
			continue
		}
		if name != family {
			continue
		}
		style, err := s.introspector.Style(path)
		if err != nil {
			skipped++
			continue
		}
		stats = append(stats, FontStats{
			FontFilePath: path,
			FamilyName:   name,
			Style:        style,
			Source:       source,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "font_stats",
		"family":  family,
		"source":  source,
		"dir":     dir,
		"scanned": len(files),
		"matched": len(stats),
		"skipped": skipped,
	}).Info("font directory scanned")
	return stats, nil
}

// listFontFiles 按目录原始列举顺序返回扩展名匹配的文件，不做排序。
func (s *StatsService) listFontFiles(dir string) ([]string, error) {
	const op = "fonts.listFontFiles"
	f, err := s.fs.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, contenterr.NotFound(op, dir, dir)
		}
		return nil, err
	}
	defer f.Close()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", op, dir, err)
	}

	files := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(info.Name()), s.extension) {
			continue
		}
		files = append(files, filepath.Join(dir, info.Name()))
	}
	return files, nil
}

func cloneStats(stats []FontStats) []FontStats {
	return append(make([]FontStats, 0, len(stats)), stats...)
}
