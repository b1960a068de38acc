package texture

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-content/internal/cache"
	"github.com/any-hub/any-content/internal/pathresolver"
)

// Cache 是以图片路径为 key 的纹理缓存。
type Cache = cache.ItemCache[string, *Texture]

// NewCache 构建共享纹理缓存；dirResolver 用于把标识规范化为磁盘上的图片路径，
// 使 Load("Hero") 与 Unload("Hero")、Unload("/x/Hero.json") 命中同一条目。
func NewCache(dirResolver pathresolver.Resolver, logger logrus.FieldLogger) *Cache {
	return cache.New(cache.Options[string, *Texture]{
		Name:    "texture",
		KeyFunc: KeyFunc(dirResolver),
		Release: func(_ string, t *Texture) { t.Release() },
		Logger:  logger,
	})
}

// KeyFunc 返回纹理缓存的 key 规范化函数：
//   - 逻辑名称解析到 dirResolver 目录下的 <name>.png
//   - 绝对路径中的 .json 元数据扩展名替换为 .png
//   - 文件存在时使用 dirResolver.LookupFile 找到的磁盘路径，与加载时的查找规则一致
//
// 不做大小写折叠：磁盘上不同的文件始终对应不同的 key。
func KeyFunc(dirResolver pathresolver.Resolver) func(string) string {
	return func(id string) string {
		if id == "" {
			return id
		}
		p := id
		if !filepath.IsAbs(p) && dirResolver != nil {
			p = filepath.Join(dirResolver.ResolveDirPath(), p)
		}
		p = filepath.Clean(p)

		switch ext := strings.ToLower(filepath.Ext(p)); ext {
		case pathresolver.TextureExtension:
		case pathresolver.AtlasDataExtension:
			p = strings.TrimSuffix(p, filepath.Ext(p)) + pathresolver.TextureExtension
		default:
			p += pathresolver.TextureExtension
		}

		if dirResolver != nil {
			if found, err := dirResolver.LookupFile(filepath.Dir(p), filepath.Base(p)); err == nil {
				return found
			}
		}
		return p
	}
}
