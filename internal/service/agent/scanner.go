package agent

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// AlertKind 告警类型，修复逻辑只按类型分派
type AlertKind string

// 告警类型
const (
	KindMissingUnavailability AlertKind = "missing_unavailability"
	KindUnnecessaryBlock      AlertKind = "unnecessary_block"
	KindLowAvailabilityRun    AlertKind = "low_availability_run"
	KindIsolatedBlock         AlertKind = "isolated_block"
	KindCheckerboard          AlertKind = "checkerboard"
)

// Valid 是否为已知类型
func (k AlertKind) Valid() bool {
	switch k {
	case KindMissingUnavailability, KindUnnecessaryBlock, KindLowAvailabilityRun, KindIsolatedBlock, KindCheckerboard:
		return true
	}
	return false
}

// Severity 告警级别
type Severity string

// 告警级别
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

const recommendReview = "Check whether this block is intentional or can be released"

// Alert 可用性告警，只在分析结果中返回，不落库
type Alert struct {
	RoomID         int64     `json:"room_id"`
	RoomName       string    `json:"room_name"`
	Date           string    `json:"date"`
	Kind           AlertKind `json:"kind"`
	Issue          string    `json:"issue"`
	Severity       Severity  `json:"severity"`
	Recommendation string    `json:"recommendation"`
}

// DaySample 扫描输入：某天存储的可用标记和预订占用情况
type DaySample struct {
	Date      time.Time
	Available bool
	Booked    bool
}

// ScanResult 单个房间的扫描结果
type ScanResult struct {
	Alerts                 []Alert
	LowAvailabilityPeriods int
	UnusualPatterns        int
	Log                    []string
}

// Scanner 可用性异常扫描器
// 四个检测器互相独立，告警不去重
type Scanner struct {
	minRun            int
	highRun           int
	checkerboardRatio decimal.Decimal
}

// NewScanner 创建扫描器
func NewScanner(cfg config.AgentConfig) *Scanner {
	return &Scanner{
		minRun:            cfg.LowAvailabilityMinRun,
		highRun:           cfg.HighSeverityRun,
		checkerboardRatio: decimal.NewFromFloat(cfg.CheckerboardRatio),
	}
}

// Scan 扫描房间的逐日序列
func (s *Scanner) Scan(room *models.Room, days []DaySample) ScanResult {
	var res ScanResult
	if len(days) == 0 {
		return res
	}

	runs := s.lowAvailabilityRuns(room, days)
	res.LowAvailabilityPeriods = len(runs)
	res.Alerts = append(res.Alerts, runs...)

	isolated := s.isolatedBlocks(room, days)
	res.UnusualPatterns += len(isolated)
	res.Alerts = append(res.Alerts, isolated...)

	if alert, ok := s.checkerboard(room, days); ok {
		res.UnusualPatterns++
		res.Alerts = append(res.Alerts, alert)
	}

	res.Alerts = append(res.Alerts, s.bookingMismatches(room, days)...)

	for _, a := range res.Alerts {
		res.Log = append(res.Log, fmt.Sprintf("%s on %s: %s", a.Kind, a.Date, a.Issue))
	}
	return res
}

// lowAvailabilityRuns 连续不可用 >= minRun 天，每段一条，锚定在首日
func (s *Scanner) lowAvailabilityRuns(room *models.Room, days []DaySample) []Alert {
	var alerts []Alert
	runStart, runLen := 0, 0

	flush := func() {
		if runLen >= s.minRun {
			severity := SeverityMedium
			if runLen > s.highRun {
				severity = SeverityHigh
			}
			last := days[runStart+runLen-1].Date
			alerts = append(alerts, newAlert(room, days[runStart].Date, KindLowAvailabilityRun, severity,
				fmt.Sprintf("%d consecutive unavailable days until %s", runLen, dateutil.Format(last)),
				recommendReview))
		}
		runLen = 0
	}

	for i, day := range days {
		if day.Available {
			flush()
			continue
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
	}
	flush()
	return alerts
}

// isolatedBlocks 前后都可用的单日不可用，不含首尾
func (s *Scanner) isolatedBlocks(room *models.Room, days []DaySample) []Alert {
	var alerts []Alert
	for i := 1; i < len(days)-1; i++ {
		if !days[i].Available && days[i-1].Available && days[i+1].Available {
			alerts = append(alerts, newAlert(room, days[i].Date, KindIsolatedBlock, SeverityLow,
				"Isolated unavailable day between available days", recommendReview))
		}
	}
	return alerts
}

// checkerboard 状态切换次数严格大于 ratio × 天数时告警一次
func (s *Scanner) checkerboard(room *models.Room, days []DaySample) (Alert, bool) {
	if !s.IsCheckerboard(Transitions(days), len(days)) {
		return Alert{}, false
	}
	return newAlert(room, days[0].Date, KindCheckerboard, SeverityMedium,
		"Checkerboard pattern of available and unavailable days",
		"Check whether this pattern is intentional or can be consolidated"), true
}

// IsCheckerboard 判断切换次数是否超过阈值
func (s *Scanner) IsCheckerboard(transitions, total int) bool {
	limit := s.checkerboardRatio.Mul(decimal.NewFromInt(int64(total)))
	return decimal.NewFromInt(int64(transitions)).GreaterThan(limit)
}

// bookingMismatches 预订占用与可用标记不一致
func (s *Scanner) bookingMismatches(room *models.Room, days []DaySample) []Alert {
	var alerts []Alert
	for _, day := range days {
		switch {
		case day.Booked && day.Available:
			alerts = append(alerts, newAlert(room, day.Date, KindMissingUnavailability, SeverityHigh,
				"Room marked available despite an existing booking",
				"Mark this date as unavailable"))
		case !day.Booked && !day.Available:
			alerts = append(alerts, newAlert(room, day.Date, KindUnnecessaryBlock, SeverityMedium,
				"Room blocked without any booking", recommendReview))
		}
	}
	return alerts
}

// Transitions 相邻两天可用状态切换次数
func Transitions(days []DaySample) int {
	n := 0
	for i := 1; i < len(days); i++ {
		if days[i].Available != days[i-1].Available {
			n++
		}
	}
	return n
}

func newAlert(room *models.Room, date time.Time, kind AlertKind, severity Severity, issue, recommendation string) Alert {
	return Alert{
		RoomID:         room.ID,
		RoomName:       room.Name,
		Date:           dateutil.Format(date),
		Kind:           kind,
		Issue:          issue,
		Severity:       severity,
		Recommendation: recommendation,
	}
}
