// Package texture holds the texture value handed out by the atlas loader and
// the shared texture cache keyed by image path. GPU upload and image decoding
// live outside this module; a Texture here only records the identity and the
// raw file facts of the backing image.
package texture

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/any-hub/any-content/internal/contenterr"
)

// Texture 描述一张已获取的图集图片。
type Texture struct {
	ID        uuid.UUID
	Name      string
	FilePath  string
	SizeBytes int64
	Checksum  uint64
	ModTime   time.Time

	released atomic.Bool
}

// Release 标记纹理已释放，由缓存的 Unload 触发；重复调用无副作用。
func (t *Texture) Release() {
	t.released.Store(true)
}

// Released 返回纹理是否已经被释放。
func (t *Texture) Released() bool {
	return t.released.Load()
}

// Factory 根据图片路径构造 Texture，是纹理缓存未命中时的加载能力。
type Factory interface {
	Create(path string) (*Texture, error)
}

// FactoryFunc 适配函数为 Factory。
type FactoryFunc func(path string) (*Texture, error)

// Create makes FactoryFunc satisfy Factory.
func (f FactoryFunc) Create(path string) (*Texture, error) {
	return f(path)
}

// FileFactory 通过 afero 读取图片原始字节并计算校验和，不做解码。
type FileFactory struct {
	FS afero.Fs
}

// NewFileFactory 构建基于文件系统的纹理工厂。
func NewFileFactory(fsys afero.Fs) (*FileFactory, error) {
	if fsys == nil {
		return nil, contenterr.MissingDependency("texture.NewFileFactory", "fs")
	}
	return &FileFactory{FS: fsys}, nil
}

func (f *FileFactory) Create(path string) (*Texture, error) {
	const op = "texture.Create"
	if path == "" {
		return nil, contenterr.Validation(op, "path", "the parameter must not be null or empty")
	}

	info, err := f.FS.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, contenterr.NotFound(op, path, filepath.Dir(path))
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, contenterr.NotFound(op, path, filepath.Dir(path))
	}

	data, err := afero.ReadFile(f.FS, path)
	if err != nil {
		return nil, err
	}

	return &Texture{
		ID:        uuid.New(),
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FilePath:  path,
		SizeBytes: int64(len(data)),
		Checksum:  xxhash.Sum64(data),
		ModTime:   info.ModTime(),
	}, nil
}
