package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/any-hub/any-content/internal/config"
	"github.com/any-hub/any-content/internal/engine"
	"github.com/any-hub/any-content/internal/logging"
	"github.com/any-hub/any-content/internal/server"
	"github.com/any-hub/any-content/internal/server/routes"
	"github.com/any-hub/any-content/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	preloadOnly bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func() { _ = logging.Close(logger) }()

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["content_root"] = cfg.Global.ContentRoot
		fields["preload"] = config.PreloadSummary(cfg.Preload)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序为“配置 → 依赖图 → 预加载 → Fiber server”，
	// 所有请求共享同一个纹理缓存与字体统计实例。
	eng, err := engine.New(cfg.Global, afero.NewOsFs(), logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建内容引擎失败: %v\n", err)
		return 1
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Preload(ctx, cfg.Preload); err != nil {
		fmt.Fprintf(stdErr, "预加载失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["content_root"] = cfg.Global.ContentRoot
	fields["preload"] = len(cfg.Preload)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("内容加载完成")

	if opts.preloadOnly {
		return 0
	}

	if err := startHTTPServer(ctx, cfg, eng, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("any-content", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		checkOnly   bool
		showVer     bool
		preloadOnly bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ANY_CONTENT_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&preloadOnly, "preload-only", false, "执行预加载后退出，不启动 HTTP 服务")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ANY_CONTENT_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		preloadOnly: preloadOnly,
	}, nil
}

func startHTTPServer(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	opts := server.AppOptions{
		Logger:         logger,
		Content:        eng,
		RequestTimeout: cfg.Global.RequestTimeout.DurationValue(),
	}
	app, err := server.NewApp(opts)
	if err != nil {
		return err
	}
	routes.RegisterContentRoutes(app, opts)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
