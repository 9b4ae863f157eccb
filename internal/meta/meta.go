package meta

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vodarc/internal/domain"
)

// Extractor 从文件 URL 与文件名中提取 Vod 描述符。
//
// 约束：
// - 除一次 HEAD 请求外无其他副作用
// - HEAD 失败/超时/缺 Last-Modified 都不是错误：回退为当前时刻（设计如此）
// - 标题清洗与时间提取是纯函数（见 CleanTitle / TimeOfDay）
type Extractor struct {
	Client *http.Client
	Log    zerolog.Logger

	// Now 可注入（测试用）；nil 时取 time.Now。
	Now func() time.Time
}

// Extract 构造一个完整的 Vod 描述符（Date 永远已填充，Title 永远非空）。
func (e *Extractor) Extract(ctx context.Context, fileURL, fileName string) domain.Vod {
	date, ok := e.lastModified(ctx, fileURL)
	if !ok {
		date = e.now()
		e.Log.Debug().Str("url", fileURL).Msg("无 Last-Modified 元数据，回退为当前时刻")
	}

	v := domain.Vod{
		URL:          fileURL,
		OriginalName: fileName,
		Title:        CleanTitle(fileName),
		TimeOfDay:    TimeOfDay(fileName),
		Date:         date,
	}
	v.FillDateParts()
	return v
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// lastModified 发起一次 HEAD 请求并解析 Last-Modified（HTTP-date）。
// 任何失败都返回 ok=false（由调用方回退，不向上传播错误）。
func (e *Extractor) lastModified(ctx context.Context, fileURL string) (time.Time, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return time.Time{}, false
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		e.Log.Debug().Err(err).Str("url", fileURL).Msg("HEAD 元数据请求失败")
		return time.Time{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return time.Time{}, false
	}
	lm := strings.TrimSpace(resp.Header.Get("Last-Modified"))
	if lm == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(lm)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// stripExts 是标题清洗时剥离的扩展名列表（按序取第一个匹配）。
// 注意：它比扫描阶段的允许列表短——与既有归档命名保持一致，不做“聪明”扩展。
var stripExts = []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".m4v"}

var (
	// 日期片段（在整个名字中逐一移除，每次移除后修剪两端分隔符）。
	// 八位连续数字同时覆盖 YYYYMMDD 与 MMDDYYYY 两种写法。
	dateREs = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{8}`),
		regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
	}

	// 行首完整时间戳（日期前缀可选：日期可能已被上一步移除，残留的
	// 裸时间片段同样不属于标题）。
	leadingTimestampRE = regexp.MustCompile(`^(?:\d{4}-\d{2}-\d{2}[_\s])?\d{1,2}[_:]\d{2}[_:]\d{2}(?:\.\d+)?[_\s]*`)

	// 行首裸日期。
	leadingDateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[_\s]*`)

	trailingNumRE = regexp.MustCompile(`_\d+$`)
	trailingGGRE  = regexp.MustCompile(`gg$`)
	underscoreRE  = regexp.MustCompile(`_+`)
	hyphenRE      = regexp.MustCompile(`-+`)
	spaceRE       = regexp.MustCompile(`\s+`)

	timeOfDayRE = regexp.MustCompile(`(\d{1,2})[_:](\d{2})[_:](\d{2})`)
)

// CleanTitle 把嘈杂的归档文件名清洗为人类可读标题。
// 纯函数；清洗为空时返回 domain.FallbackTitle。
func CleanTitle(fileName string) string {
	title := fileName

	lower := strings.ToLower(title)
	for _, ext := range stripExts {
		if strings.HasSuffix(lower, ext) {
			title = title[:len(title)-len(ext)]
			break
		}
	}

	for _, re := range dateREs {
		title = strings.Trim(re.ReplaceAllString(title, ""), " -_")
	}

	title = leadingTimestampRE.ReplaceAllString(title, "")
	title = leadingDateRE.ReplaceAllString(title, "")

	// 百分号解码（%20 -> 空格等）；解码失败保留原样。
	if u, err := url.PathUnescape(title); err == nil {
		title = u
	}

	title = trailingNumRE.ReplaceAllString(title, "")
	title = trailingGGRE.ReplaceAllString(title, "")
	title = underscoreRE.ReplaceAllString(title, " ")
	title = hyphenRE.ReplaceAllString(title, " - ")
	title = spaceRE.ReplaceAllString(title, " ")
	title = strings.Trim(title, " -_")

	if title == "" {
		return domain.FallbackTitle
	}
	return title
}

// TimeOfDay 从原始文件名（不是清洗后的标题）中提取 "HH:MM:SS"。
// 小时允许 1–2 位（补零输出）；分/秒必须恰好 2 位；分隔符 '_' 或 ':' 各自独立。
// 无匹配时返回空串。
func TimeOfDay(fileName string) string {
	m := timeOfDayRE.FindStringSubmatch(fileName)
	if m == nil {
		return ""
	}
	h := m[1]
	if len(h) == 1 {
		h = "0" + h
	}
	return h + ":" + m[2] + ":" + m[3]
}
