package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedPreloadKinds = map[string]struct{}{
	KindAtlas: {},
	KindFont:  {},
}

const supportedPreloadKindList = "atlas|font"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.ContentRoot) == "" {
		return newFieldError("Global.ContentRoot", "不能为空")
	}
	if err := validateDirName(g.AtlasDirName); err != nil {
		return newFieldError("Global.AtlasDirName", err.Error())
	}
	if err := validateDirName(g.FontDirName); err != nil {
		return newFieldError("Global.FontDirName", err.Error())
	}
	if !strings.HasPrefix(g.FontExtension, ".") || len(g.FontExtension) < 2 {
		return newFieldError("Global.FontExtension", "必须以 . 开头，例如 .ttf")
	}
	if g.RequestTimeout.DurationValue() <= 0 {
		return newFieldError("Global.RequestTimeout", "必须大于 0")
	}
	if g.PreloadConcurrency <= 0 {
		return newFieldError("Global.PreloadConcurrency", "必须大于 0")
	}

	for i := range c.Preload {
		item := &c.Preload[i]
		kind := strings.ToLower(strings.TrimSpace(item.Kind))
		if kind == "" {
			return newFieldError(preloadField(i, "Kind"), "不能为空")
		}
		if _, ok := supportedPreloadKinds[kind]; !ok {
			return newFieldError(preloadField(i, "Kind"), "仅支持 "+supportedPreloadKindList)
		}
		item.Kind = kind
		if strings.TrimSpace(item.Name) == "" {
			return newFieldError(preloadField(i, "Name"), "不能为空")
		}
	}

	return nil
}

func validateDirName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("不允许包含路径分隔符: %s", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("不允许使用相对目录: %s", name)
	}
	return nil
}
