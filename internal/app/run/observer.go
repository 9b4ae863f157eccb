package run

import (
	"time"

	"github.com/John-Robertt/vodarc/internal/config"
	"github.com/John-Robertt/vodarc/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 回调全部来自同一个 goroutine（下载严格串行），实现无需加锁。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnScanDone 在扫描阶段结束时调用（found 为新发现的 VOD 数）。
	OnScanDone(found int, dur time.Duration)
	// OnItemStart 在单条下载开始前调用（idx 从 1 计数）。
	OnItemStart(idx, total int, v domain.Vod)
	// OnItemDone 在单条下载结束（含跳过/失败）时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
	// OnRunDone 在整次运行结束时调用（report 已 Finalize）。
	OnRunDone(summary domain.ReportSummary, elapsed time.Duration)
}
