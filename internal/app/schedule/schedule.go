package schedule

import (
	"context"
	"time"
)

// NextCheck 返回 now 之后最近一次的每日检查时刻（本地语义：沿用 now 的时区）。
// checkTime 形如 "HH:MM"，由配置层保证合法；今天的时刻已过（含恰好等于）则滚到明天。
func NextCheck(now time.Time, checkTime string) time.Time {
	t, err := time.Parse("15:04", checkTime)
	if err != nil {
		// 配置层已校验过格式，这里只兜底为一天后。
		return now.Add(24 * time.Hour)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Wait 阻塞到 until；ctx 先取消返回 false。
func Wait(ctx context.Context, until time.Time) bool {
	d := time.Until(until)
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
