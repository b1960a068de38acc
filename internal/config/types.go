package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 预加载条目支持的内容类型。
const (
	KindAtlas = "atlas"
	KindFont  = "font"
)

// GlobalConfig 描述内容根目录、日志与诊断服务的运行参数。
type GlobalConfig struct {
	ListenPort         int      `mapstructure:"ListenPort"`
	LogLevel           string   `mapstructure:"LogLevel"`
	LogFilePath        string   `mapstructure:"LogFilePath"`
	LogMaxSize         int      `mapstructure:"LogMaxSize"`
	LogMaxBackups      int      `mapstructure:"LogMaxBackups"`
	LogCompress        bool     `mapstructure:"LogCompress"`
	ContentRoot        string   `mapstructure:"ContentRoot"`
	AtlasDirName       string   `mapstructure:"AtlasDirName"`
	FontDirName        string   `mapstructure:"FontDirName"`
	SystemFontDir      string   `mapstructure:"SystemFontDir"`
	FontExtension      string   `mapstructure:"FontExtension"`
	RequestTimeout     Duration `mapstructure:"RequestTimeout"`
	PreloadConcurrency int      `mapstructure:"PreloadConcurrency"`
}

// PreloadConfig 声明启动阶段需要预先加载的内容。
type PreloadConfig struct {
	Kind string `mapstructure:"Kind"`
	Name string `mapstructure:"Name"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig    `mapstructure:",squash"`
	Preload []PreloadConfig `mapstructure:"Preload"`
}

// PreloadSummary 返回 kind:name 形式的摘要，供日志字段使用。
func PreloadSummary(items []PreloadConfig) []string {
	if len(items) == 0 {
		return nil
	}
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = fmt.Sprintf("%s:%s", item.Kind, item.Name)
	}
	return result
}
