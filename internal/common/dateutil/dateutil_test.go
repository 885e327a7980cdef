package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTruncate(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	// 罗马时间 7 月 4 日 00:30 对应 UTC 7 月 3 日，按当地日历日取 7 月 4 日
	local := time.Date(2026, 7, 4, 0, 30, 0, 0, rome)
	assert.Equal(t, d("2026-07-04"), Truncate(local))
}

func TestRange_HalfOpen(t *testing.T) {
	dates := Range(d("2026-07-01"), d("2026-07-04"))

	require.Len(t, dates, 3)
	assert.Equal(t, d("2026-07-01"), dates[0])
	assert.Equal(t, d("2026-07-03"), dates[2])
}

func TestRange_Degenerate(t *testing.T) {
	assert.Empty(t, Range(d("2026-07-04"), d("2026-07-04")))
	assert.Empty(t, Range(d("2026-07-05"), d("2026-07-04")))
	assert.NotNil(t, Range(d("2026-07-05"), d("2026-07-04")))
}

func TestRange_AcrossMonthAndYear(t *testing.T) {
	dates := Range(d("2026-12-30"), d("2027-01-02"))
	require.Len(t, dates, 3)
	assert.Equal(t, "2026-12-31", Format(dates[1]))
	assert.Equal(t, "2027-01-01", Format(dates[2]))
}

func TestRange_Restartable(t *testing.T) {
	w := NewWindow(d("2026-03-28"), d("2026-04-02"))
	assert.Equal(t, w.Days(), w.Days())
	assert.Len(t, w.Days(), 5)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(d("2026-07-04"), d("2026-07-04")))
	assert.Equal(t, 61, DaysBetween(d("2026-05-04"), d("2026-07-04")))
	assert.Equal(t, -1, DaysBetween(d("2026-07-04"), d("2026-07-03")))
	assert.Equal(t, 3652058, DaysBetween(d("0001-01-01"), d("9999-12-31")))
}

func TestInclusiveWindow(t *testing.T) {
	w := NewInclusiveWindow(d("2026-07-01"), d("2026-07-10"))

	assert.Equal(t, 10, w.Len())
	assert.Equal(t, d("2026-07-11"), w.End)
	assert.Equal(t, d("2026-07-10"), w.Last())
	assert.Equal(t, "2026-07-01 to 2026-07-10", w.String())
}

func TestWindow_Empty(t *testing.T) {
	w := NewWindow(d("2026-07-05"), d("2026-07-01"))
	assert.True(t, w.Empty())
	assert.Equal(t, 0, w.Len())
	assert.Contains(t, w.String(), "empty")
}

func TestClocks(t *testing.T) {
	fixed := FixedClock(time.Date(2026, 4, 1, 18, 45, 0, 0, time.UTC))
	assert.Equal(t, d("2026-04-01"), fixed.Today())

	sys := SystemClock{}
	assert.Equal(t, Truncate(time.Now().UTC()), sys.Today())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("04/07/2026")
	assert.Error(t, err)
}
