package domain

import (
	"sort"
	"time"
)

const (
	// StatusDownloaded 表示本次运行新下载并完成改名。
	StatusDownloaded = "downloaded"
	// StatusSkipped 表示最终文件已存在，无需网络活动。
	StatusSkipped = "skipped"
	// StatusTooLarge 表示超过体积上限的主动跳过（不是错误，不落盘）。
	StatusTooLarge = "too_large"
	// StatusFailed 表示下载/落盘失败（残留已清理，批次继续）。
	StatusFailed = "failed"
)

// RunReport 是一次 scan+download 的对外稳定输出（stdout JSON / 日志摘要）。
type RunReport struct {
	BaseURL string `json:"base_url"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Found      int `json:"found"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type ItemResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	FinalPath string `json:"final_path"`
	Status    string `json:"status"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 URL 字典序（同一扫描内 URL 唯一）
// 3) summary 由 items 计算得出（too_large 计入 skipped，但不会写入 seen）
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].URL < r.Items[j].URL
	})

	var s ReportSummary
	s.Found = len(r.Items)
	for _, it := range r.Items {
		switch it.Status {
		case StatusDownloaded:
			s.Downloaded++
		case StatusSkipped, StatusTooLarge:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}
