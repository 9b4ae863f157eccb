package run

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vodarc/internal/app/planner"
	"github.com/John-Robertt/vodarc/internal/config"
	"github.com/John-Robertt/vodarc/internal/domain"
	"github.com/John-Robertt/vodarc/internal/download"
	"github.com/John-Robertt/vodarc/internal/infra/httpx"
	"github.com/John-Robertt/vodarc/internal/meta"
	"github.com/John-Robertt/vodarc/internal/scan"
	"github.com/John-Robertt/vodarc/internal/seen"
)

// Options 是一次 run 的可选依赖（全部可为零值）。
type Options struct {
	Log zerolog.Logger

	// Obs 非 nil 时接收进度/阶段事件（由上层决定是否启用）。
	Obs Observer

	// ProgressOut 非 nil 时逐文件输出下载进度条（仅 TTY 场景启用）。
	ProgressOut io.Writer
}

// Execute 执行一次完整的 scan+download，并返回对外稳定的 RunReport。
//
// 下载阶段严格串行（硬约束）：一次只有一个在途下载，
// 相邻两次下载之间停顿 eff.DownloadDelay。这是对归档站的礼貌性限速策略，
// 不是实现上的偶然限制；任何并发化都必须先推翻这条约束。
//
// 单条失败降级为 item 级 failed，批次继续；ctx 取消在条目间与停顿中生效。
func Execute(ctx context.Context, eff config.EffectiveConfig, st *seen.Set, opt Options) domain.RunReport {
	started := time.Now().UTC()

	if opt.Obs != nil {
		opt.Obs.OnStart(eff)
	}

	rr := domain.RunReport{
		BaseURL:   eff.BaseURL,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 64),
	}

	listingClient := httpx.NewListingClient()

	extractor := &meta.Extractor{Client: listingClient, Log: opt.Log}
	scanner := &scan.Scanner{
		Client:  listingClient,
		Seen:    st,
		Extract: extractor,
		Log:     opt.Log,
	}

	scanStarted := time.Now()
	vods := scanner.Scan(ctx, eff.BaseURL)
	if opt.Obs != nil {
		opt.Obs.OnScanDone(len(vods), time.Since(scanStarted))
	}

	mat := &download.Materializer{
		Client:      httpx.NewDownloadClient(),
		Log:         opt.Log,
		MaxFileSize: eff.MaxFileSizeBytes,
		ProgressOut: opt.ProgressOut,
	}

	for i, v := range vods {
		if ctx.Err() != nil {
			break
		}
		// 停顿放在条目之间：首条不等，末条之后不等。
		if i > 0 && !sleepFunc(ctx, eff.DownloadDelay) {
			break
		}

		if opt.Obs != nil {
			opt.Obs.OnItemStart(i+1, len(vods), v)
		}

		itemStarted := time.Now()
		res := materializeOne(ctx, eff, st, mat, v, opt.Log)
		rr.Items = append(rr.Items, res)

		if opt.Obs != nil {
			opt.Obs.OnItemDone(i+1, len(vods), res, time.Since(itemStarted))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()

	if opt.Obs != nil {
		opt.Obs.OnRunDone(rr.Summary, rr.FinishedAt.Sub(rr.StartedAt))
	}
	return rr
}

// materializeOne 物化单个 VOD 并把 Outcome 映射为报告状态。
//
// seen 标记规则（硬约束）：
// - downloaded / 已存在 => 标记（之后的扫描不再列出）
// - too_large => 不标记（调大上限后下次运行能重新拿到）
// - failed => 不标记（下次运行自动重试）
func materializeOne(ctx context.Context, eff config.EffectiveConfig, st *seen.Set, mat *download.Materializer, v domain.Vod, log zerolog.Logger) domain.ItemResult {
	pp := planner.BuildPaths(eff.DownloadPath, eff.FolderStructure, eff.FileNamePattern, v)

	res := domain.ItemResult{
		URL:       v.URL,
		Title:     v.Title,
		FinalPath: pp.FinalAbs,
	}

	out, err := mat.Materialize(ctx, v, pp)
	switch out {
	case download.OutcomeDownloaded:
		res.Status = domain.StatusDownloaded
		st.MarkSeen(v.URL)
	case download.OutcomeExists:
		res.Status = domain.StatusSkipped
		st.MarkSeen(v.URL)
	case download.OutcomeTooLarge:
		res.Status = domain.StatusTooLarge
	default:
		res.Status = domain.StatusFailed
		if err != nil {
			res.ErrorMsg = err.Error()
		}
		log.Error().Err(err).Str("url", v.URL).Msg("下载失败，继续后续条目")
	}
	return res
}

// 通过可替换的函数指针，让测试不必真实等待停顿。
var sleepFunc = sleepCtx

// sleepCtx 等待 d；ctx 先取消则返回 false。
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
