package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(cfg.Global.ContentRoot) {
		t.Fatalf("ContentRoot 应被转换为绝对路径，得到 %s", cfg.Global.ContentRoot)
	}
	if cfg.Global.RequestTimeout.DurationValue() != 5*time.Second {
		t.Fatalf("RequestTimeout 解析错误: %v", cfg.Global.RequestTimeout.DurationValue())
	}
	if cfg.Global.FontExtension != ".ttf" {
		t.Fatalf("FontExtension 应该自动填充默认值，得到 %q", cfg.Global.FontExtension)
	}
	if cfg.Global.LogMaxSize != 100 {
		t.Fatalf("LogMaxSize 默认值缺失")
	}
	if len(cfg.Preload) != 2 {
		t.Fatalf("预加载条目解析错误: %+v", cfg.Preload)
	}
	if cfg.Preload[1].Kind != KindFont {
		t.Fatalf("Kind 应被规范化为小写，得到 %q", cfg.Preload[1].Kind)
	}
}

func TestValidateRejectsBadPreload(t *testing.T) {
	cfgPath := testConfigPath(t, "missing.toml")

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "Preload[0].Kind" {
		t.Fatalf("期望 Preload[0].Kind 字段错误，得到 %v", err)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateDirNames(t *testing.T) {
	testCases := []struct {
		name      string
		dirName   string
		shouldErr bool
	}{
		{"plain", "Atlas", false},
		{"empty", "", true},
		{"nested", "Atlas/Sub", true},
		{"windows separator", `Atlas\Sub`, true},
		{"parent", "..", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Global.AtlasDirName = tc.dirName
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for dir %q", tc.dirName)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for dir %q: %v", tc.dirName, err)
			}
		})
	}
}

func TestValidatePreloadKinds(t *testing.T) {
	testCases := []struct {
		name      string
		kind      string
		shouldErr bool
	}{
		{"atlas ok", "atlas", false},
		{"font ok", "FONT", false},
		{"missing kind", "", true},
		{"unsupported kind", "sound", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Preload = []PreloadConfig{{Kind: tc.kind, Name: "Hero"}}
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for kind %q", tc.kind)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for kind %q: %v", tc.kind, err)
			}
		})
	}
}

func TestValidateRequiresPreloadName(t *testing.T) {
	cfg := validConfig()
	cfg.Preload = []PreloadConfig{{Kind: KindAtlas, Name: "  "}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Preload Name 为空时应报错")
	}
}

func TestValidateFontExtension(t *testing.T) {
	cfg := validConfig()
	cfg.Global.FontExtension = "ttf"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("FontExtension 缺少点号时应报错")
	}
}

func TestPreloadSummary(t *testing.T) {
	got := PreloadSummary([]PreloadConfig{{Kind: KindAtlas, Name: "Hero"}, {Kind: KindFont, Name: "Go"}})
	if len(got) != 2 || got[0] != "atlas:Hero" || got[1] != "font:Go" {
		t.Fatalf("摘要输出错误: %v", got)
	}
	if PreloadSummary(nil) != nil {
		t.Fatalf("空列表应返回 nil")
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:         5000,
			ContentRoot:        "./content",
			AtlasDirName:       "Atlas",
			FontDirName:        "Fonts",
			FontExtension:      ".ttf",
			RequestTimeout:     Duration(time.Second),
			PreloadConcurrency: 1,
		},
	}
}
