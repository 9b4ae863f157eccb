package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/vodarc/internal/app/run"
	"github.com/John-Robertt/vodarc/internal/config"
	"github.com/John-Robertt/vodarc/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端上的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 下载严格串行，事件来自单一 goroutine，无需加锁
type progressUI struct {
	w io.Writer

	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] vodarc run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  source: %s\n", eff.BaseURL)
	fmt.Fprintf(p.w, "  download_path: %s\n", eff.DownloadPath)
	fmt.Fprintf(p.w, "  max_file_size: %s\n", formatLimit(eff.MaxFileSizeBytes))
	fmt.Fprintf(p.w, "  download_delay: %s\n", eff.DownloadDelay)
	fmt.Fprintf(p.w, "  check_time: %s\n", eff.CheckTime)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnScanDone(found int, dur time.Duration) {
	fmt.Fprintf(p.w, "扫描: 新发现=%d (%s)\n\n", found, formatShortDuration(dur))
}

func (p *progressUI) OnItemStart(idx, total int, v domain.Vod) {
	fmt.Fprintf(p.w, "[%d/%d] %s\n", idx, total, truncate(v.Title, 120))
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	switch res.Status {
	case domain.StatusDownloaded:
		fmt.Fprintf(p.w, "[%d/%d] DONE %s (%s)\n", idx, total, res.FinalPath, formatShortDuration(dur))
	case domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] SKIP (最终文件已存在) (%s)\n", idx, total, formatShortDuration(dur))
	case domain.StatusTooLarge:
		fmt.Fprintf(p.w, "[%d/%d] SKIP (超过大小上限) (%s)\n", idx, total, formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s (%s)\n", idx, total, truncate(res.ErrorMsg, 160), formatShortDuration(dur))
	}
}

func (p *progressUI) OnRunDone(s domain.ReportSummary, elapsed time.Duration) {
	fmt.Fprintf(p.w, "\n完成: found=%d downloaded=%d skipped=%d failed=%d elapsed=%s\n",
		s.Found, s.Downloaded, s.Skipped, s.Failed, formatElapsed(elapsed),
	)
}

func formatLimit(bytes int64) string {
	if bytes <= 0 {
		return "off"
	}
	return humanize.Bytes(uint64(bytes))
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
