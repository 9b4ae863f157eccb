package planner

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/vodarc/internal/domain"
)

// DefaultExt 是原始名缺少扩展名时的兜底扩展名。
const DefaultExt = ".mp4"

// BuildPaths 根据描述符与两份模板计算一个 PathPair。
//
// 纯函数（硬约束）：相同输入 => 相同输出；不做任何 stat/IO。
// - 临时路径使用原始文件名（原样保留，支持中断恢复时按源名做存在性检查）
// - 最终路径使用清洗后的模板渲染名 + 原始扩展名
// - 目录模板按 '/' 切段后逐段清洗，保持模板表达的目录层级
func BuildPaths(root, folderTpl, fileTpl string, v domain.Vod) domain.PathPair {
	folder := renderFolder(folderTpl, v)

	fileName := sanitize(Render(elideEmptyTime(fileTpl, v.TimeOfDay), v))

	ext := path.Ext(v.OriginalName)
	if ext == "" {
		ext = DefaultExt
	}

	dir := filepath.Join(append([]string{root}, folder...)...)
	return domain.PathPair{
		TempAbs:  filepath.Join(dir, v.OriginalName),
		FinalAbs: filepath.Join(dir, fileName+ext),
	}
}

// placeholderRE 匹配 {name} 形式的占位符。
// 已知名单之外的占位符保留字面原样（配置手误直接可见，不让整夜运行失败）。
var placeholderRE = regexp.MustCompile(`\{[a-z_]+\}`)

// Render 在模板中替换已知占位符。
// 识别的占位符是固定枚举：year/month/month_name/day/date/time/title。
func Render(tpl string, v domain.Vod) string {
	return placeholderRE.ReplaceAllStringFunc(tpl, func(ph string) string {
		switch ph {
		case "{year}":
			return v.Year
		case "{month}":
			return v.Month
		case "{month_name}":
			return v.MonthName
		case "{day}":
			return v.Day
		case "{date}":
			return v.DateStr
		case "{time}":
			return v.TimeOfDay
		case "{title}":
			return v.Title
		default:
			return ph
		}
	})
}

// renderFolder 渲染目录模板：先按 '/' 切段，再逐段替换与清洗。
// 先切段后渲染，{title} 中出现的 '/' 才会被当作非法字符替换，而不是制造新层级。
func renderFolder(tpl string, v domain.Vod) []string {
	parts := strings.Split(tpl, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		seg := sanitize(Render(p, v))
		if seg == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// invalidPathChars 是目录段/文件名中统一替换为 '_' 的字符集合。
const invalidPathChars = `<>:"/\|?*`

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidPathChars, r) {
			return '_'
		}
		return r
	}, s)
}

// elideEmptyTime 处理“模板要时间但描述符没有”的特例：
// 移除 {time} 及其相邻的 " - " 分隔符，再收敛空格并修剪边缘，
// 保证未知时间的 VOD 不会渲染出空占位或悬空分隔符。
func elideEmptyTime(fileTpl, timeOfDay string) string {
	if timeOfDay != "" || !strings.Contains(fileTpl, "{time}") {
		return fileTpl
	}
	tpl := fileTpl
	tpl = strings.ReplaceAll(tpl, "{time} - ", "")
	tpl = strings.ReplaceAll(tpl, " - {time}", "")
	tpl = strings.ReplaceAll(tpl, "{time}", "")
	tpl = strings.Trim(tpl, " -")
	return strings.Join(strings.Fields(tpl), " ")
}
