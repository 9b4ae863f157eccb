package domain

import (
	"fmt"
	"strings"
	"time"
)

// FallbackTitle 是标题清洗后为空时的兜底标题。
// 约束：最终 Vod 的 Title 永远非空（宁可是兜底值，也不允许空串进入路径模板）。
const FallbackTitle = "Untitled VOD"

// Vod 描述一次扫描发现的远端视频文件（描述符，不含任何本地路径决策）。
//
// 不变量（实现必须遵守）：
// - URL 在一次扫描内全局唯一（去重主键）
// - Date 永远已填充（Last-Modified 缺失时回退为提取时刻）
// - Title 永远非空（见 FallbackTitle）
// - OriginalName 保留服务器上的原始名字（含百分号编码），临时路径依赖它
type Vod struct {
	URL          string
	OriginalName string

	Title     string
	TimeOfDay string // "HH:MM:SS"；文件名中无时间片段时为空串

	Date time.Time

	// 以下派生字段由 FillDateParts 从 Date 计算（模板渲染直接消费字符串）。
	Year      string // "2025"
	Month     string // "09"（两位数字）
	MonthName string // "sep"（三字母小写）
	Day       string // "16"
	DateStr   string // "2025-09-16"
}

// FillDateParts 从 Date 计算派生日期字段。
// 必须在 Date 确定后调用一次；之后 Vod 可被当作只读值传递。
func (v *Vod) FillDateParts() {
	t := v.Date
	v.Year = fmt.Sprintf("%04d", t.Year())
	v.Month = fmt.Sprintf("%02d", int(t.Month()))
	v.MonthName = strings.ToLower(t.Format("Jan"))
	v.Day = fmt.Sprintf("%02d", t.Day())
	v.DateStr = t.Format("2006-01-02")
}
