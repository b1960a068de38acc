// Package atlas loads texture atlases: a <name>.json sub-texture table paired
// with a <name>.png image in the same directory. Metadata is parsed on every
// Load; only the backing texture is cached, through the shared texture cache.
package atlas

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/any-hub/any-content/internal/cache"
	"github.com/any-hub/any-content/internal/contenterr"
	"github.com/any-hub/any-content/internal/pathresolver"
	"github.com/any-hub/any-content/internal/texture"
)

const (
	textureExtension   = pathresolver.TextureExtension
	atlasDataExtension = pathresolver.AtlasDataExtension
)

// TextureCache 是 Loader 依赖的纹理缓存能力，*texture.Cache 即满足该接口。
type TextureCache interface {
	GetOrAdd(key string, factory cache.Factory[*texture.Texture]) (*texture.Texture, error)
	Unload(key string) bool
}

// Deps 汇总 Loader 的协作者，除 Logger 外均为必填。
type Deps struct {
	Textures       TextureCache
	TextureFactory texture.Factory
	Resolver       pathresolver.Resolver
	Decoder        Decoder
	Assembler      Assembler
	FS             afero.Fs
	Logger         logrus.FieldLogger
}

// Loader 负责图集的路径解析、成对文件校验、反序列化与组装。
type Loader struct {
	textures  TextureCache
	factory   texture.Factory
	resolver  pathresolver.Resolver
	decoder   Decoder
	assembler Assembler
	fs        afero.Fs
	logger    logrus.FieldLogger
}

// NewLoader 在任何 IO 之前校验依赖，缺失时返回指明参数名的 Validation 错误。
func NewLoader(deps Deps) (*Loader, error) {
	const op = "atlas.NewLoader"
	switch {
	case deps.Textures == nil:
		return nil, contenterr.MissingDependency(op, "textureCache")
	case deps.TextureFactory == nil:
		return nil, contenterr.MissingDependency(op, "textureFactory")
	case deps.Resolver == nil:
		return nil, contenterr.MissingDependency(op, "atlasDataPathResolver")
	case deps.Decoder == nil:
		return nil, contenterr.MissingDependency(op, "decoder")
	case deps.Assembler == nil:
		return nil, contenterr.MissingDependency(op, "atlasAssembler")
	case deps.FS == nil:
		return nil, contenterr.MissingDependency(op, "fs")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{
		textures:  deps.Textures,
		factory:   deps.TextureFactory,
		resolver:  deps.Resolver,
		decoder:   deps.Decoder,
		assembler: deps.Assembler,
		fs:        deps.FS,
		logger:    logger,
	}, nil
}

// Load 按逻辑名称或绝对路径加载图集。
//
// 合法输入：
//
//	MyAtlas
//	MyAtlas.json（逻辑名称末尾的 .json/.png 在拼接文件路径时去掉）
//	/atlas/MyAtlas.png
//	/atlas/MyAtlas.json
//
// 非法输入：/atlas/MyAtlas（无扩展名）、/atlas/MyAtlas.txt、../Other（越出图集目录）。
// 成对文件按解析器的规则查找：精确匹配优先，其次忽略大小写。
func (l *Loader) Load(contentPathOrName string) (*AtlasData, error) {
	const op = "atlas.Load"
	if err := pathresolver.ValidateName(op, contentPathOrName); err != nil {
		return nil, err
	}

	rooted := filepath.IsAbs(contentPathOrName)
	var dir, base string
	if rooted {
		dir = filepath.Dir(contentPathOrName)
		ext := filepath.Ext(contentPathOrName)
		if !strings.EqualFold(ext, textureExtension) && !strings.EqualFold(ext, atlasDataExtension) {
			reason := fmt.Sprintf("when loading atlas data with fully qualified paths, the files must be a '%s' or '%s' extension", textureExtension, atlasDataExtension)
			return nil, contenterr.LoadAtlas(op, contentPathOrName, dir, reason, nil)
		}
		base = strings.TrimSuffix(filepath.Base(contentPathOrName), ext)
	} else {
		atlasDir := l.resolver.ResolveDirPath()
		if err := pathresolver.ValidateRelativeName(op, atlasDir, contentPathOrName); err != nil {
			return nil, err
		}
		if err := l.ensureDir(atlasDir); err != nil {
			return nil, err
		}
		full := filepath.Join(atlasDir, trimAtlasExtension(contentPathOrName))
		dir, base = filepath.Dir(full), filepath.Base(full)
	}
	name := base
	if !rooted {
		name = contentPathOrName
	}

	dataPath, err := l.requireFile(op, name, dir, base+atlasDataExtension, "atlas data")
	if err != nil {
		return nil, err
	}
	imagePath, err := l.requireFile(op, name, dir, base+textureExtension, "atlas image")
	if err != nil {
		return nil, err
	}

	raw, err := afero.ReadFile(l.fs, dataPath)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", op, dataPath, err)
	}
	subTextures, err := l.decoder.Decode(raw)
	if err != nil {
		return nil, contenterr.Corrupt(op, dataPath, err)
	}
	if subTextures == nil {
		return nil, contenterr.Corrupt(op, dataPath, errNullPayload)
	}

	tex, err := l.textures.GetOrAdd(imagePath, func() (*texture.Texture, error) {
		return l.factory.Create(imagePath)
	})
	if err != nil {
		return nil, err
	}

	atlas, err := l.assembler.Assemble(subTextures, dir, name, tex)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"action":       "load_atlas",
		"atlas":        name,
		"dir":          dir,
		"rooted":       rooted,
		"sub_textures": len(subTextures),
	}).Info("atlas loaded")
	return atlas, nil
}

// Unload 以相同标识从纹理缓存中移除图集纹理，返回纹理是否曾被缓存。
// 标识规范化由缓存自身完成。
func (l *Loader) Unload(contentPathOrName string) bool {
	if !l.textures.Unload(contentPathOrName) {
		return false
	}
	l.logger.WithFields(logrus.Fields{
		"action": "unload_atlas",
		"atlas":  contentPathOrName,
	}).Info("atlas texture unloaded")
	return true
}

func trimAtlasExtension(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, atlasDataExtension) || strings.EqualFold(ext, textureExtension) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func (l *Loader) ensureDir(dir string) error {
	exists, err := afero.DirExists(l.fs, dir)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create atlas directory %s: %w", dir, err)
	}
	return nil
}

// requireFile 在 dir 中查找 fileName 并返回磁盘路径；缺失时返回包裹 NotFound 的 LoadAtlas 错误。
func (l *Loader) requireFile(op, name, dir, fileName, label string) (string, error) {
	path, err := l.resolver.LookupFile(dir, fileName)
	if err == nil {
		return path, nil
	}
	if !contenterr.IsKind(err, contenterr.KindNotFound) {
		return "", err
	}
	want := filepath.Join(dir, fileName)
	reason := fmt.Sprintf("the atlas data directory '%s' does not contain the required '%s' %s file", dir, want, label)
	return "", contenterr.LoadAtlas(op, name, dir, reason, contenterr.NotFound(op, want, dir))
}
