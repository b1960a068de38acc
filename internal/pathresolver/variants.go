package pathresolver

import (
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

const (
	AtlasDataExtension = ".json"
	TextureExtension   = ".png"
	FontExtension      = ".ttf"
)

// NewAtlasResolver 解析应用内容目录下的图集元数据（.json）。
func NewAtlasResolver(fs afero.Fs, contentRoot, dirName string) (*ContentResolver, error) {
	return New(Options{
		FS:              fs,
		Root:            contentRoot,
		DirName:         dirName,
		Extension:       AtlasDataExtension,
		CaseInsensitive: true,
	})
}

// NewTextureResolver 解析与图集同目录的图片文件（.png）。
func NewTextureResolver(fs afero.Fs, contentRoot, dirName string) (*ContentResolver, error) {
	return New(Options{
		FS:              fs,
		Root:            contentRoot,
		DirName:         dirName,
		Extension:       TextureExtension,
		CaseInsensitive: true,
	})
}

// NewContentFontResolver 解析随应用打包的字体文件。
func NewContentFontResolver(fs afero.Fs, contentRoot, dirName, extension string) (*ContentResolver, error) {
	if extension == "" {
		extension = FontExtension
	}
	return New(Options{
		FS:              fs,
		Root:            contentRoot,
		DirName:         dirName,
		Extension:       extension,
		CaseInsensitive: true,
	})
}

// NewSystemFontResolver 解析宿主操作系统的字体目录；override 非空时替代平台默认目录。
func NewSystemFontResolver(fs afero.Fs, override, extension string) (*ContentResolver, error) {
	root, dirName := SystemFontRoot(runtime.GOOS)
	if override != "" {
		root, dirName = splitDir(override)
	}
	if extension == "" {
		extension = FontExtension
	}
	return New(Options{
		FS:              fs,
		Root:            root,
		DirName:         dirName,
		Extension:       extension,
		CaseInsensitive: true,
	})
}

// SystemFontRoot 返回指定平台的字体根目录与子目录名。
func SystemFontRoot(goos string) (root, dirName string) {
	switch goos {
	case "windows":
		return `C:\Windows`, "Fonts"
	case "darwin":
		return "/Library", "Fonts"
	default:
		return "/usr/share", "fonts"
	}
}

func splitDir(dir string) (string, string) {
	cleaned := filepath.Clean(dir)
	return filepath.Dir(cleaned), filepath.Base(cleaned)
}
