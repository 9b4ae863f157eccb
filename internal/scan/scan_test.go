package scan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vodarc/internal/domain"
)

type stubSeen map[string]struct{}

func (s stubSeen) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

// stubExtractor 不打网络：直接用文件名构造描述符。
type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, fileURL, fileName string) domain.Vod {
	v := domain.Vod{
		URL:          fileURL,
		OriginalName: fileName,
		Title:        fileName,
		Date:         time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC),
	}
	v.FillDateParts()
	return v
}

func listingServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
}

func newScanner(srv *httptest.Server, seen Seen) *Scanner {
	return &Scanner{
		Client:  srv.Client(),
		Seen:    seen,
		Extract: stubExtractor{},
		Log:     zerolog.Nop(),
	}
}

func TestScan_RecursesDepthFirstPreOrder(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"/vods/": `<html><body>
			<a href="../">Parent</a>
			<a href="2025/">2025/</a>
			<a href="root.mp4">root.mp4</a>
		</body></html>`,
		"/vods/2025/": `<html><body>
			<a href="../">Parent</a>
			<a href="a.mp4">a.mp4</a>
			<a href="notes.txt">notes.txt</a>
		</body></html>`,
	})
	defer srv.Close()

	s := newScanner(srv, stubSeen{})
	got := s.Scan(context.Background(), srv.URL+"/vods/")

	// 子目录先于后续兄弟（先序、深度优先）。
	if len(got) != 2 {
		t.Fatalf("期望 2 个 VOD，实际 %d：%+v", len(got), got)
	}
	if got[0].OriginalName != "a.mp4" || got[1].OriginalName != "root.mp4" {
		t.Fatalf("遍历顺序不符合契约：%q, %q", got[0].OriginalName, got[1].OriginalName)
	}
	if got[0].URL != srv.URL+"/vods/2025/a.mp4" {
		t.Fatalf("相对 URL 解析不正确：%q", got[0].URL)
	}
}

func TestScan_SkipsSeenURLs(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"/vods/": `<html><body>
			<a href="old.mp4">old.mp4</a>
			<a href="new.mp4">new.mp4</a>
		</body></html>`,
	})
	defer srv.Close()

	seen := stubSeen{srv.URL + "/vods/old.mp4": {}}
	s := newScanner(srv, seen)
	got := s.Scan(context.Background(), srv.URL+"/vods/")

	if len(got) != 1 || got[0].OriginalName != "new.mp4" {
		t.Fatalf("SeenSet 命中未被跳过：%+v", got)
	}
}

func TestScan_IgnoresNonVideoAndSortLinks(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"/vods/": `<html><body>
			<a href="?C=M;O=A">Sort</a>
			<a href="readme.txt">readme.txt</a>
			<a href="a.MKV">a.MKV</a>
		</body></html>`,
	})
	defer srv.Close()

	s := newScanner(srv, stubSeen{})
	got := s.Scan(context.Background(), srv.URL+"/vods/")

	// 扩展名比较大小写不敏感。
	if len(got) != 1 || got[0].OriginalName != "a.MKV" {
		t.Fatalf("过滤规则不正确：%+v", got)
	}
}

func TestScan_FailedSubtreeDoesNotAbortScan(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"/vods/": `<html><body>
			<a href="missing/">missing/</a>
			<a href="ok.mp4">ok.mp4</a>
		</body></html>`,
		// missing/ 未注册：返回 404。
	})
	defer srv.Close()

	s := newScanner(srv, stubSeen{})
	got := s.Scan(context.Background(), srv.URL+"/vods/")

	// 失败子树贡献空结果；兄弟条目照常处理。
	if len(got) != 1 || got[0].OriginalName != "ok.mp4" {
		t.Fatalf("子树失败不应影响兄弟：%+v", got)
	}
}

func TestScan_DepthGuardPrunes(t *testing.T) {
	// loop/ 自引用：没有深度上限会无限递归。
	srv := listingServer(t, map[string]string{
		"/loop/": `<html><body><a href="./">loop</a><a href="x.mp4">x.mp4</a></body></html>`,
	})
	defer srv.Close()

	s := newScanner(srv, stubSeen{})
	s.MaxDepth = 3
	got := s.Scan(context.Background(), srv.URL+"/loop/")

	// 每层各发现一次 x.mp4，超限后剪枝（1 + MaxDepth 层）。
	if len(got) != 4 {
		t.Fatalf("深度护栏未生效：发现 %d 个条目", len(got))
	}
}

func TestScan_EmptyResultIsNotError(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"/vods/": `<html><body><a href="../">Parent</a></body></html>`,
	})
	defer srv.Close()

	s := newScanner(srv, stubSeen{})
	got := s.Scan(context.Background(), srv.URL+"/vods/")
	if len(got) != 0 {
		t.Fatalf("期望空结果：%+v", got)
	}
}
