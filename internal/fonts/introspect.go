package fonts

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/image/font/sfnt"

	"github.com/any-hub/any-content/internal/contenterr"
)

// ErrNoFamilyName 表示字体命名表中缺少家族名称。
var ErrNoFamilyName = errors.New("font family name not found")

// Introspector 读取字体文件的家族名称与样式。
type Introspector interface {
	FamilyName(path string) (string, error)
	Style(path string) (FontStyle, error)
}

// SfntIntrospector 通过 sfnt 命名表读取家族（NameIDFamily）与子家族（NameIDSubfamily）。
type SfntIntrospector struct {
	fs afero.Fs
}

// NewSfntIntrospector 构建基于 afero 的字体解析器。
func NewSfntIntrospector(fsys afero.Fs) (*SfntIntrospector, error) {
	if fsys == nil {
		return nil, contenterr.MissingDependency("fonts.NewSfntIntrospector", "fs")
	}
	return &SfntIntrospector{fs: fsys}, nil
}

func (s *SfntIntrospector) FamilyName(path string) (string, error) {
	f, err := s.parse(path)
	if err != nil {
		return "", err
	}
	name, err := f.Name(nil, sfnt.NameIDFamily)
	if errors.Is(err, sfnt.ErrNotFound) || (err == nil && name == "") {
		return "", fmt.Errorf("%s: %w", path, ErrNoFamilyName)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return name, nil
}

func (s *SfntIntrospector) Style(path string) (FontStyle, error) {
	f, err := s.parse(path)
	if err != nil {
		return Regular, err
	}
	subfamily, err := f.Name(nil, sfnt.NameIDSubfamily)
	if errors.Is(err, sfnt.ErrNotFound) {
		return Regular, nil
	}
	if err != nil {
		return Regular, fmt.Errorf("%s: %w", path, err)
	}
	return ParseStyle(subfamily), nil
}

func (s *SfntIntrospector) parse(path string) (*sfnt.Font, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, contenterr.Corrupt("fonts.parse", path, err)
	}
	return f, nil
}
