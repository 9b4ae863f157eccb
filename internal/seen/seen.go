package seen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vodarc/internal/infra/fsx"
)

// DefaultFileName 是 seen-set 落盘文件的固定名字（位于下载根目录下）。
const DefaultFileName = "downloaded_files.json"

// Set 是“已处理 URL”的持久化集合。
//
// 约束：
// - 启动时加载一次；文件缺失/损坏都降级为空集合（warn 日志，不删除旧文件）
// - URL 只有在下载确认完成、或最终文件确认已存在时才加入
// - 每次加入后立即整体落盘（不批量），中断的运行不丢失已完成条目的去重状态
// - 单线程消费：集合本身不加锁；多进程共享同一文件不在契约内
type Set struct {
	path string
	urls map[string]struct{}

	log zerolog.Logger
}

// Load 从 path 加载 seen-set。文件不存在或无法解析时返回空集合（只告警，不报错）。
func Load(path string, log zerolog.Logger) *Set {
	s := &Set{
		path: filepath.Clean(path),
		urls: map[string]struct{}{},
		log:  log,
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("读取 seen-set 失败，按空集合处理")
		}
		return s
	}

	var urls []string
	if err := json.Unmarshal(b, &urls); err != nil {
		// 坏文件不删除：下一次 MarkSeen 会整体覆盖写。
		log.Warn().Err(err).Str("path", s.path).Msg("seen-set 文件损坏，按空集合处理")
		return s
	}

	for _, u := range urls {
		if u == "" {
			continue
		}
		s.urls[u] = struct{}{}
	}
	return s
}

// Contains 判断 url 是否已处理。
func (s *Set) Contains(url string) bool {
	_, ok := s.urls[url]
	return ok
}

// Len 返回已处理条目数（用于启动横幅与日志）。
func (s *Set) Len() int { return len(s.urls) }

// MarkSeen 把 url 加入集合并立即落盘。
// 落盘失败只记日志：内存状态对本次运行仍然正确，持久性缺口由
// “最终文件存在性检查”在下一次运行兜底。
func (s *Set) MarkSeen(url string) {
	if url == "" {
		return
	}
	if _, ok := s.urls[url]; ok {
		return
	}
	s.urls[url] = struct{}{}

	if err := s.persist(); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("写入 seen-set 失败")
	}
}

func (s *Set) persist() error {
	// 排序后写出：输出稳定、可 diff（集合遍历顺序不进入磁盘格式）。
	urls := make([]string, 0, len(s.urls))
	for u := range s.urls {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	b, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	return fsx.WriteFileAtomicReplace(dir, filepath.Base(s.path), b)
}
