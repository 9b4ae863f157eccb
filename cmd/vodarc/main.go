package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vodarc/internal/app/run"
	"github.com/John-Robertt/vodarc/internal/app/schedule"
	"github.com/John-Robertt/vodarc/internal/config"
	"github.com/John-Robertt/vodarc/internal/domain"
	"github.com/John-Robertt/vodarc/internal/seen"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "watch":
		if code := watchCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
		fmt.Fprintf(os.Stderr, "未知参数 %q\n\n", a)
		printRunUsage()
		return 2
	}

	eff, st, log, closeLog, ok := bootstrap()
	if !ok {
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rr := executeOnce(ctx, eff, st, log)

	emitReport(rr)
	if rr.Summary.Failed > 0 {
		return 1
	}
	return 0
}

func watchCmd(args []string) int {
	runNow := false
	for _, a := range args {
		switch {
		case isHelp(a):
			printWatchUsage()
			return 0
		case a == "--now":
			runNow = true
		default:
			fmt.Fprintf(os.Stderr, "未知参数 %q\n\n", a)
			printWatchUsage()
			return 2
		}
	}

	eff, st, log, closeLog, ok := bootstrap()
	if !ok {
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runNow {
		rr := executeOnce(ctx, eff, st, log)
		logSummary(log, rr)
	}

	for {
		next := schedule.NextCheck(time.Now(), eff.CheckTime)
		log.Info().Time("next_check", next).Msg("等待下一次每日检查")
		if !schedule.Wait(ctx, next) {
			log.Info().Msg("收到退出信号，停止 watch")
			return 0
		}
		rr := executeOnce(ctx, eff, st, log)
		logSummary(log, rr)
	}
}

// bootstrap 完成三件事：加载配置、打开日志、载入 seen 文件。
// 配置失败时向 stdout 输出一份合成的失败报告（保持非 TTY 下的 JSON 契约）。
func bootstrap() (config.EffectiveConfig, *seen.Set, zerolog.Logger, func(), bool) {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return config.EffectiveConfig{}, nil, zerolog.Nop(), func() {}, false
	}

	eff, err := config.LoadEffective(cwd)
	if err != nil {
		emitReport(reportForConfigError(err))
		return config.EffectiveConfig{}, nil, zerolog.Nop(), func() {}, false
	}

	log, closeLog := newLogger(eff)
	st := seen.Load(filepath.Join(eff.DownloadPath, seen.DefaultFileName), log)
	return eff, st, log, closeLog, true
}

func executeOnce(ctx context.Context, eff config.EffectiveConfig, st *seen.Set, log zerolog.Logger) domain.RunReport {
	progressW, interactive := pickProgressWriter()

	opt := run.Options{Log: log}
	if interactive {
		opt.Obs = newProgressUI(progressW)
		opt.ProgressOut = progressW
	}
	return run.Execute(ctx, eff, st, opt)
}

// newLogger 构造双路日志：stderr 上人类可读的 console 输出 +
// 下载根目录下的 vodarc.log 追加写（机器可查的 JSON 行）。
func newLogger(eff config.EffectiveConfig) (zerolog.Logger, func()) {
	level := zerolog.InfoLevel
	if eff.Debug {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}}
	closeFn := func() {}

	if err := os.MkdirAll(eff.DownloadPath, 0o755); err == nil {
		f, e := os.OpenFile(filepath.Join(eff.DownloadPath, "vodarc.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if e == nil {
			writers = append(writers, f)
			closeFn = func() { _ = f.Close() }
		} else {
			fmt.Fprintf(os.Stderr, "打开日志文件失败（仅输出到 stderr）：%v\n", e)
		}
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return log, closeFn
}

func logSummary(log zerolog.Logger, rr domain.RunReport) {
	log.Info().
		Int("found", rr.Summary.Found).
		Int("downloaded", rr.Summary.Downloaded).
		Int("skipped", rr.Summary.Skipped).
		Int("failed", rr.Summary.Failed).
		Msg("本次运行结束")
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  vodarc run            立即执行一次 扫描+下载
  vodarc watch [--now]  常驻运行，每天 CHECK_TIME 执行一次

配置全部来自环境变量（或当前目录的 .env）：
  DOWNLOAD_PATH VOD_BASE_URL MAX_FILE_SIZE_MB CHECK_TIME
  FOLDER_STRUCTURE FILE_NAME_PATTERN DOWNLOAD_DELAY_SEC DEBUG

使用 "vodarc run --help" / "vodarc watch --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  vodarc run

立即执行一次完整的 扫描+下载。
stdout 非 TTY 时，stdout 仅输出一份 RunReport JSON（日志走 stderr）。
`)
}

func printWatchUsage() {
	fmt.Fprint(os.Stdout, `用法：
  vodarc watch [--now]

参数：
  --now       启动后立即执行一次，再进入每日定时循环
  -h, --help  显示帮助
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：found=%d downloaded=%d skipped=%d failed=%d\n",
			rr.Summary.Found, rr.Summary.Downloaded, rr.Summary.Skipped, rr.Summary.Failed,
		)
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s: %s\n", it.URL, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：found=%d downloaded=%d skipped=%d failed=%d\n",
		rr.Summary.Found, rr.Summary.Downloaded, rr.Summary.Skipped, rr.Summary.Failed,
	)
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		StartedAt:  now,
		FinishedAt: now,
		// *config.Error 的 Error() 已带 error_code 前缀。
		Items: []domain.ItemResult{{
			Status:   domain.StatusFailed,
			ErrorMsg: err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
