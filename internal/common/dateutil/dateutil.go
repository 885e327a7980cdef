// Package dateutil 按日历日处理日期。
//
// 所有日期统一表示为 UTC 零点的 time.Time，只使用年月日部分。
// 区间统一采用半开区间 [start, end)：预订的退房日不占用，
// 面向用户的闭区间 (start_date..end_date) 通过 NewInclusiveWindow 转换一次。
package dateutil

import (
	"fmt"
	"time"
)

// Layout 日期格式
const Layout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Truncate 取 t 所在日历日，返回 UTC 零点
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse 解析 YYYY-MM-DD
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Truncate(t), nil
}

// Format 输出 YYYY-MM-DD
func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddDays 日期加减天数
func AddDays(t time.Time, n int) time.Time {
	return Truncate(t).AddDate(0, 0, n)
}

// DaysBetween 返回 from 到 to 相差的整天数，to 早于 from 时为负数
// 按 Unix 秒计算，跨度超过 time.Duration 上限（约 292 年）时仍然准确
func DaysBetween(from, to time.Time) int {
	return int((Truncate(to).Unix() - Truncate(from).Unix()) / secondsPerDay)
}

// Range 返回 [start, end) 内的每一天，start >= end 时返回空切片
func Range(start, end time.Time) []time.Time {
	start, end = Truncate(start), Truncate(end)
	if !start.Before(end) {
		return []time.Time{}
	}
	dates := make([]time.Time, 0, DaysBetween(start, end))
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Window 半开日期区间 [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow 创建半开区间
func NewWindow(start, end time.Time) Window {
	return Window{Start: Truncate(start), End: Truncate(end)}
}

// NewInclusiveWindow 用首尾两天（都包含）创建区间
func NewInclusiveWindow(first, last time.Time) Window {
	return Window{Start: Truncate(first), End: AddDays(last, 1)}
}

// Days 区间内的日期序列
func (w Window) Days() []time.Time {
	return Range(w.Start, w.End)
}

// Len 区间天数
func (w Window) Len() int {
	if !w.Start.Before(w.End) {
		return 0
	}
	return DaysBetween(w.Start, w.End)
}

// Empty 区间是否为空
func (w Window) Empty() bool {
	return w.Len() == 0
}

// Last 区间最后一天（包含）
func (w Window) Last() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// String 以闭区间形式输出，和接口参数保持一致
func (w Window) String() string {
	if w.Empty() {
		return fmt.Sprintf("%s (empty)", Format(w.Start))
	}
	return fmt.Sprintf("%s to %s", Format(w.Start), Format(w.Last()))
}

// Clock 提供"今天"，分析和定价逻辑通过它获取当前日期
type Clock interface {
	Today() time.Time
}

// SystemClock 按业务时区读取系统时间
type SystemClock struct {
	Location *time.Location
}

// Today 实现 Clock
func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return Truncate(time.Now().In(loc))
}

// FixedClock 固定日期，测试使用
type FixedClock time.Time

// Today 实现 Clock
func (c FixedClock) Today() time.Time {
	return Truncate(time.Time(c))
}
