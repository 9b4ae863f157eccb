package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/John-Robertt/vodarc/internal/domain"
	"github.com/John-Robertt/vodarc/internal/infra/fsx"
)

// Outcome 是单个 VOD 物化的终态。
type Outcome string

const (
	OutcomeDownloaded Outcome = "downloaded" // 完整下载并 rename 到最终路径
	OutcomeExists     Outcome = "exists"     // 最终路径已存在，未发起下载
	OutcomeTooLarge   Outcome = "too_large"  // 超过大小上限，未发起下载
	OutcomeFailed     Outcome = "failed"     // 下载或 rename 失败，临时文件已清理
)

// Materializer 把单个 VOD 从远端落为本地最终文件。
//
// 两阶段物化（硬约束）：先写临时文件，完整落盘后 rename 为最终名。
// 最终路径上的文件因此只有两种状态：不存在，或完整。
// 任何失败都会 best-effort 清理临时文件，绝不把半成品留在最终路径。
type Materializer struct {
	Client *http.Client
	Log    zerolog.Logger

	// MaxFileSize <=0 表示不限制。
	MaxFileSize int64

	// ProgressOut 非 nil 时输出终端进度条；nil 表示静默（非 TTY / 测试）。
	ProgressOut io.Writer
}

// Materialize 执行 存在性检查 -> 大小检查 -> 下载 -> rename 的完整流程。
// OutcomeFailed 之外的结局 err 一定为 nil。
func (m *Materializer) Materialize(ctx context.Context, v domain.Vod, pp domain.PathPair) (Outcome, error) {
	// 存在性检查：最终文件已存在 => 跳过，不打网络。
	if _, err := os.Stat(pp.FinalAbs); err == nil {
		m.Log.Debug().Str("path", pp.FinalAbs).Msg("最终文件已存在，跳过下载")
		return OutcomeExists, nil
	}

	// 大小检查：HEAD 拿 Content-Length。HEAD 失败视为大小未知，继续下载。
	size, ok := m.remoteSize(ctx, v.URL)
	if ok && m.MaxFileSize > 0 && size > m.MaxFileSize {
		m.Log.Warn().
			Str("title", v.Title).
			Str("size", humanize.Bytes(uint64(size))).
			Str("limit", humanize.Bytes(uint64(m.MaxFileSize))).
			Msg("超过大小上限，跳过")
		return OutcomeTooLarge, nil
	}

	if err := m.downloadToTemp(ctx, v, pp.TempAbs, size); err != nil {
		m.purge(pp)
		return OutcomeFailed, err
	}

	if err := fsx.Rename(pp.TempAbs, pp.FinalAbs); err != nil {
		m.purge(pp)
		return OutcomeFailed, fmt.Errorf("rename 失败：%w", err)
	}

	m.Log.Info().Str("path", pp.FinalAbs).Msg("下载完成")
	return OutcomeDownloaded, nil
}

// purge 清理失败残留（临时与最终路径都删，best-effort，不掩盖原始错误）。
// 走到这里时最终路径理论上不存在（开头已检查、rename 又是原子的），删它只是兜底。
func (m *Materializer) purge(pp domain.PathPair) {
	_ = fsx.RemoveIfExists(pp.TempAbs)
	_ = fsx.RemoveIfExists(pp.FinalAbs)
}

// remoteSize 通过 HEAD 探测远端文件大小。任何失败都不是错误（返回 ok=false）。
func (m *Materializer) remoteSize(ctx context.Context, fileURL string) (int64, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return 0, false
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		m.Log.Warn().Err(err).Str("url", fileURL).Msg("HEAD 失败，大小未知")
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, false
	}
	if resp.ContentLength < 0 {
		return 0, false
	}
	return resp.ContentLength, true
}

func (m *Materializer) downloadToTemp(ctx context.Context, v domain.Vod, tempAbs string, size int64) error {
	if err := os.MkdirAll(filepath.Dir(tempAbs), 0o755); err != nil {
		return err
	}

	// 孤儿临时文件：上次运行中断的残留。O_TRUNC 重头下载即可覆盖，
	// 这里只留一条痕迹方便排查，不做清扫。
	if _, err := os.Stat(tempAbs); err == nil {
		m.Log.Warn().Str("path", tempAbs).Msg("发现上次残留的临时文件，将重新下载覆盖")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return err
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("下载请求失败：%w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.OpenFile(tempAbs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	var dst io.Writer = f
	if m.ProgressOut != nil {
		// Content-Length 未知时传 -1，进度条退化为 spinner。
		total := resp.ContentLength
		if size > 0 && total <= 0 {
			total = size
		}
		bar := progressbar.NewOptions64(
			total,
			progressbar.OptionSetWriter(m.ProgressOut),
			progressbar.OptionSetDescription(v.Title),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		dst = io.MultiWriter(f, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("写入临时文件失败：%w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
