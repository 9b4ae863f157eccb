package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/vodarc/internal/domain"
)

// DefaultMaxDepth 是递归深度的防御性上限。
// 远端目录树假定无环（autoindex 不会自引用），该上限只是兜底：
// 超限的子树记一条错误日志并剪枝，绝不让整次扫描失败。
const DefaultMaxDepth = 16

// Seen 是扫描阶段需要的最小去重视图。
type Seen interface {
	Contains(url string) bool
}

// Extractor 把“元数据提取”从遍历逻辑中解耦出来（测试可替换）。
type Extractor interface {
	Extract(ctx context.Context, fileURL, fileName string) domain.Vod
}

// videoExts 是扫描阶段识别的视频容器扩展名（小写）。
func isVideoExt(ext string) bool {
	switch ext {
	case ".mp4", ".mkv", ".avi", ".mov", ".webm", ".m4v", ".flv", ".wmv":
		return true
	default:
		return false
	}
}

// Scanner 递归遍历远端 HTTP 目录树，产出新发现的 Vod 描述符。
//
// 规则（硬约束）：
// - 深度优先、先序遍历；子目录先于后续兄弟处理（结果顺序即下载顺序）
// - 任何一层抓取/解析失败：记错误日志，该子树贡献空结果，扫描继续
// - SeenSet 命中的文件静默跳过（仅 debug 日志），不再发起 HEAD
type Scanner struct {
	Client  *http.Client
	Seen    Seen
	Extract Extractor
	Log     zerolog.Logger

	// MaxDepth <=0 时取 DefaultMaxDepth。
	MaxDepth int
}

// Scan 从 baseURL 开始递归扫描。空结果是合法的非错误结局。
func (s *Scanner) Scan(ctx context.Context, baseURL string) []domain.Vod {
	return s.scanDir(ctx, baseURL, 0)
}

func (s *Scanner) scanDir(ctx context.Context, dirURL string, depth int) []domain.Vod {
	max := s.MaxDepth
	if max <= 0 {
		max = DefaultMaxDepth
	}
	if depth > max {
		s.Log.Error().Str("url", dirURL).Int("depth", depth).Msg("超过最大递归深度，剪枝")
		return nil
	}

	entries, err := s.fetchListing(ctx, dirURL)
	if err != nil {
		s.Log.Error().Err(err).Str("url", dirURL).Msg("抓取目录列表失败")
		return nil
	}

	var vods []domain.Vod
	for _, href := range entries {
		if ctx.Err() != nil {
			return vods
		}

		// 跳过父目录链接。
		if href == ".." || href == "../" {
			continue
		}

		fullURL := resolveURL(dirURL, href)

		if strings.HasSuffix(href, "/") {
			s.Log.Debug().Str("url", fullURL).Msg("进入子目录")
			vods = append(vods, s.scanDir(ctx, fullURL, depth+1)...)
			continue
		}

		name := href
		ext := strings.ToLower(path.Ext(name))
		if !isVideoExt(ext) {
			continue
		}

		if s.Seen.Contains(fullURL) {
			s.Log.Debug().Str("name", name).Msg("已处理过，跳过")
			continue
		}

		v := s.Extract.Extract(ctx, fullURL, name)
		vods = append(vods, v)
		s.Log.Info().Str("title", v.Title).Str("name", name).Msg("发现新 VOD")
	}
	return vods
}

// fetchListing 抓取并解析一页目录列表，返回所有 <a href> 的原始 href。
// 仅依赖的结构契约：锚元素代表子条目，尾部 '/' 表示子目录，相对 URL 按页面自身解析。
func (s *Scanner) fetchListing(ctx context.Context, dirURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs, nil
}

func resolveURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
