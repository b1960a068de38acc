// Package pathresolver maps logical content names to absolute paths under a
// fixed root directory. Each variant (atlas data, textures, bundled fonts,
// host system fonts) is an independently configured ContentResolver rather
// than a subtype; callers depend only on the Resolver interface.
package pathresolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/any-hub/any-content/internal/contenterr"
)

// Resolver 是所有路径解析变体共享的能力集合。
type Resolver interface {
	// RootDirectory 返回内容根目录。
	RootDirectory() string
	// ContentDirectoryName 返回根目录下的内容子目录名，例如 Atlas、Fonts。
	ContentDirectoryName() string
	// ResolveDirPath 返回 RootDirectory/ContentDirectoryName 的绝对路径。
	ResolveDirPath() string
	// ResolveFilePath 将逻辑名称解析为实际存在的文件路径，找不到时返回 NotFound。
	ResolveFilePath(name string) (string, error)
	// LookupFile 在任意目录中按该解析器的大小写规则查找文件，返回磁盘上的实际路径。
	LookupFile(dir, fileName string) (string, error)
}

// Options 描述一个解析器实例，变体之间仅根目录与扩展名不同。
type Options struct {
	FS              afero.Fs
	Root            string
	DirName         string
	Extension       string
	CaseInsensitive bool
}

// ContentResolver 是 Resolver 的唯一实现，按 Options 组合出不同变体。
type ContentResolver struct {
	fs              afero.Fs
	root            string
	dirName         string
	extension       string
	caseInsensitive bool
}

// New 校验 Options 并构建解析器；FS/Root/DirName/Extension 均为必填。
func New(opts Options) (*ContentResolver, error) {
	const op = "pathresolver.New"
	if opts.FS == nil {
		return nil, contenterr.MissingDependency(op, "fs")
	}
	if strings.TrimSpace(opts.Root) == "" {
		return nil, contenterr.Validation(op, "root", "root directory must not be empty")
	}
	if strings.TrimSpace(opts.DirName) == "" {
		return nil, contenterr.Validation(op, "dirName", "content directory name must not be empty")
	}
	if !strings.HasPrefix(opts.Extension, ".") {
		return nil, contenterr.Validation(op, "extension", "extension must start with '.'")
	}
	return &ContentResolver{
		fs:              opts.FS,
		root:            filepath.Clean(opts.Root),
		dirName:         opts.DirName,
		extension:       opts.Extension,
		caseInsensitive: opts.CaseInsensitive,
	}, nil
}

func (r *ContentResolver) RootDirectory() string { return r.root }

func (r *ContentResolver) ContentDirectoryName() string { return r.dirName }

// Extension 返回该解析器过滤的文件扩展名（含点号）。
func (r *ContentResolver) Extension() string { return r.extension }

func (r *ContentResolver) ResolveDirPath() string {
	return filepath.Join(r.root, r.dirName)
}

func (r *ContentResolver) ResolveFilePath(name string) (string, error) {
	const op = "pathresolver.ResolveFilePath"
	if err := ValidateName(op, name); err != nil {
		return "", err
	}

	base := name
	if ext := filepath.Ext(name); ext != "" && r.sameName(ext, r.extension) {
		base = strings.TrimSuffix(name, ext)
	}

	want := filepath.Join(r.ResolveDirPath(), base+r.extension)
	return r.LookupFile(filepath.Dir(want), filepath.Base(want))
}

// LookupFile 在 dir 中查找 fileName。精确匹配优先，大小写不敏感的解析器在没有精确匹配时
// 才接受忽略大小写的匹配，因此 Hero.png 与 hero.png 同时存在时两者不会互相遮蔽。
func (r *ContentResolver) LookupFile(dir, fileName string) (string, error) {
	const op = "pathresolver.LookupFile"
	want := filepath.Join(dir, fileName)

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", contenterr.NotFound(op, want, dir)
		}
		return "", err
	}

	folded := ""
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == fileName {
			return want, nil
		}
		if folded == "" && r.caseInsensitive && strings.EqualFold(entry.Name(), fileName) {
			folded = filepath.Join(dir, entry.Name())
		}
	}
	if folded != "" {
		return folded, nil
	}
	return "", contenterr.NotFound(op, want, dir)
}

func (r *ContentResolver) sameName(a, b string) bool {
	if r.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// ValidateName 拒绝空名称以及以目录分隔符结尾的名称。
func ValidateName(op, name string) error {
	if name == "" {
		return contenterr.Validation(op, "name", "the parameter must not be null or empty")
	}
	last := name[len(name)-1]
	if last == '/' || os.IsPathSeparator(last) {
		return contenterr.Validation(op, name, "the name cannot end with a folder; it must end with a file name with or without the extension")
	}
	return nil
}

// ValidateRelativeName 要求 name 是相对于 dir 的名称，且不含 .. 路径段，
// 因此拼接到 dir 后不会离开 dir。对外暴露的入口用它拒绝绝对路径与越界。
func ValidateRelativeName(op, dir, name string) error {
	if err := ValidateName(op, name); err != nil {
		return err
	}
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" || name[0] == '/' || name[0] == '\\' {
		return contenterr.Validation(op, name, "the name must be relative to the content directory")
	}
	for _, part := range strings.FieldsFunc(name, isSeparator) {
		if part == ".." {
			return contenterr.Validation(op, name, "the name must stay inside the content directory")
		}
	}
	base := filepath.Clean(dir)
	if rel, err := filepath.Rel(base, filepath.Join(base, name)); err != nil || rel == "." {
		return contenterr.Validation(op, name, "the name must refer to a file inside the content directory")
	}
	return nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
