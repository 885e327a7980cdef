package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

var scanRoom = &models.Room{ID: 1, Name: "Doppia", BasePrice: 80, MaxGuests: 2, IsActive: true}

// samples 按模式构造样本：A 可用，U 不可用且已预订，B 不可用且无预订，X 可用但已预订
func samples(start time.Time, pattern string) []DaySample {
	days := make([]DaySample, 0, len(pattern))
	for i, c := range pattern {
		s := DaySample{Date: start.AddDate(0, 0, i)}
		switch c {
		case 'A':
			s.Available = true
		case 'U':
			s.Booked = true
		case 'X':
			s.Available = true
			s.Booked = true
		}
		days = append(days, s)
	}
	return days
}

func ofKind(alerts []Alert, kind AlertKind) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func TestScanner_LowAvailabilityRun(t *testing.T) {
	s := NewScanner(testAgentConfig())
	start := d(2026, 7, 1)

	t.Run("四天连续不可用只产生一条中级告警", func(t *testing.T) {
		res := s.Scan(scanRoom, samples(start, "AAUUUUAAAA"))
		require.Len(t, res.Alerts, 1)
		alert := res.Alerts[0]
		assert.Equal(t, KindLowAvailabilityRun, alert.Kind)
		assert.Equal(t, SeverityMedium, alert.Severity)
		assert.Equal(t, "2026-07-03", alert.Date)
		assert.Equal(t, 1, res.LowAvailabilityPeriods)
		assert.Zero(t, res.UnusualPatterns)
	})

	t.Run("三天为下限", func(t *testing.T) {
		res := s.Scan(scanRoom, samples(start, "AUUUAAAAAA"))
		assert.Len(t, ofKind(res.Alerts, KindLowAvailabilityRun), 1)

		res = s.Scan(scanRoom, samples(start, "AUUAAAAAAA"))
		assert.Empty(t, ofKind(res.Alerts, KindLowAvailabilityRun))
	})

	t.Run("超过七天为高级", func(t *testing.T) {
		res := s.Scan(scanRoom, samples(start, "AUUUUUUUAAAAAAAAAAAA"))
		runs := ofKind(res.Alerts, KindLowAvailabilityRun)
		require.Len(t, runs, 1)
		assert.Equal(t, SeverityMedium, runs[0].Severity)

		res = s.Scan(scanRoom, samples(start, "AUUUUUUUUAAAAAAAAAAA"))
		runs = ofKind(res.Alerts, KindLowAvailabilityRun)
		require.Len(t, runs, 1)
		assert.Equal(t, SeverityHigh, runs[0].Severity)
	})

	t.Run("窗口末尾的连续段", func(t *testing.T) {
		res := s.Scan(scanRoom, samples(start, "AAAAAAAUUU"))
		runs := ofKind(res.Alerts, KindLowAvailabilityRun)
		require.Len(t, runs, 1)
		assert.Equal(t, "2026-07-08", runs[0].Date)
	})
}

func TestScanner_IsolatedBlock(t *testing.T) {
	s := NewScanner(testAgentConfig())

	// 首日不计入，第 4 天前后均可用
	res := s.Scan(scanRoom, samples(d(2026, 7, 1), "UAAUAAAAAA"))
	isolated := ofKind(res.Alerts, KindIsolatedBlock)
	require.Len(t, isolated, 1)
	assert.Equal(t, "2026-07-04", isolated[0].Date)
	assert.Equal(t, SeverityLow, isolated[0].Severity)
}

func TestScanner_Checkerboard(t *testing.T) {
	s := NewScanner(testAgentConfig())
	start := d(2026, 7, 1)

	four := samples(start, "AUAUAAAAAA")
	assert.Equal(t, 4, Transitions(four))
	assert.Empty(t, ofKind(s.Scan(scanRoom, four).Alerts, KindCheckerboard))

	five := samples(start, "AUAUAUUUUU")
	assert.Equal(t, 5, Transitions(five))
	res := s.Scan(scanRoom, five)
	board := ofKind(res.Alerts, KindCheckerboard)
	require.Len(t, board, 1)
	assert.Equal(t, "2026-07-01", board[0].Date)

	// 两个孤立日加一次棋盘
	assert.Equal(t, 3, res.UnusualPatterns)
}

func TestScanner_BookingMismatches(t *testing.T) {
	s := NewScanner(testAgentConfig())

	res := s.Scan(scanRoom, samples(d(2026, 7, 1), "AXAABAAAAA"))

	missing := ofKind(res.Alerts, KindMissingUnavailability)
	require.Len(t, missing, 1)
	assert.Equal(t, "2026-07-02", missing[0].Date)
	assert.Equal(t, SeverityHigh, missing[0].Severity)

	blocks := ofKind(res.Alerts, KindUnnecessaryBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, "2026-07-05", blocks[0].Date)
	assert.Equal(t, SeverityMedium, blocks[0].Severity)

	assert.Len(t, res.Log, len(res.Alerts))
}

func TestScanner_Empty(t *testing.T) {
	res := NewScanner(testAgentConfig()).Scan(scanRoom, nil)
	assert.Empty(t, res.Alerts)
	assert.Zero(t, res.LowAvailabilityPeriods)
}

func TestAlertKind_Valid(t *testing.T) {
	assert.True(t, KindCheckerboard.Valid())
	assert.True(t, KindMissingUnavailability.Valid())
	assert.False(t, AlertKind("booking inconsistency").Valid())
}
