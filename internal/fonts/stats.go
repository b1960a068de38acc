package fonts

import "strings"

// FontStyle 是可组合的字体样式位：Bold 与 Italic 可以同时存在。
type FontStyle uint8

const (
	Regular FontStyle = 0
	Bold    FontStyle = 1 << 0
	Italic  FontStyle = 1 << 1
)

// Has 判断是否包含指定样式位。
func (s FontStyle) Has(flag FontStyle) bool {
	return s&flag == flag
}

func (s FontStyle) String() string {
	if s == Regular {
		return "Regular"
	}
	var parts []string
	if s.Has(Bold) {
		parts = append(parts, "Bold")
	}
	if s.Has(Italic) {
		parts = append(parts, "Italic")
	}
	return strings.Join(parts, "|")
}

// MarshalText 让样式在 JSON 中以可读字符串输出。
func (s FontStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 接受 MarshalText 的输出以及 subfamily 写法。
func (s *FontStyle) UnmarshalText(text []byte) error {
	*s = ParseStyle(string(text))
	return nil
}

// ParseStyle 根据字体 subfamily 名称推断样式，例如 "Bold Italic"、"Oblique"。
func ParseStyle(subfamily string) FontStyle {
	lower := strings.ToLower(subfamily)
	style := Regular
	if strings.Contains(lower, "bold") {
		style |= Bold
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		style |= Italic
	}
	return style
}

// FontSource 区分字体来自应用内容目录还是宿主系统字体目录。
type FontSource string

const (
	SourceAppContent FontSource = "app_content"
	SourceSystem     FontSource = "system"
)

// FontStats 描述一个字体文件的家族、样式与来源。
type FontStats struct {
	FontFilePath string     `json:"font_file_path"`
	FamilyName   string     `json:"family_name"`
	Style        FontStyle  `json:"style"`
	Source       FontSource `json:"source"`
}
