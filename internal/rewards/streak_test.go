package rewards_test

import (
	"testing"
	"time"

	"koffieblik-backend/internal/rewards"

	"github.com/stretchr/testify/assert"
)

func day(offset int) time.Time {
	base := time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestStreak_SingleDay(t *testing.T) {
	longest, current := rewards.Streak([]time.Time{day(0)}, day(0))
	assert.Equal(t, 1, longest)
	assert.Equal(t, 1, current)
}

func TestStreak_GapBreaksCurrentRun(t *testing.T) {
	// [gün, gün+1, gün+3], now = gün+3 -> longest 2, current 1
	longest, current := rewards.Streak([]time.Time{day(0), day(1), day(3)}, day(3))
	assert.Equal(t, 2, longest)
	assert.Equal(t, 1, current)
}

func TestStreak_CurrentZeroWhenStale(t *testing.T) {
	// Son sipariş iki günden eski: kuyruk serisi güncel değil
	longest, current := rewards.Streak([]time.Time{day(0), day(1), day(2)}, day(5))
	assert.Equal(t, 3, longest)
	assert.Equal(t, 0, current)
}

func TestStreak_TailTouchingYesterdayStillCurrent(t *testing.T) {
	longest, current := rewards.Streak([]time.Time{day(0), day(1)}, day(2))
	assert.Equal(t, 2, longest)
	assert.Equal(t, 2, current)
}

func TestStreak_SameDayOrdersCollapse(t *testing.T) {
	// Aynı gün içindeki birden fazla sipariş tek gün sayılır
	times := []time.Time{
		day(0),
		day(0).Add(3 * time.Hour),
		day(1),
	}
	longest, current := rewards.Streak(times, day(1))
	assert.Equal(t, 2, longest)
	assert.Equal(t, 2, current)
}

func TestStreak_UTCDayBoundary(t *testing.T) {
	// 23:30 UTC ve ertesi gün 00:30 UTC ardışık iki gündür
	t1 := time.Date(2025, time.June, 1, 23, 30, 0, 0, time.UTC)
	t2 := time.Date(2025, time.June, 2, 0, 30, 0, 0, time.UTC)
	longest, current := rewards.Streak([]time.Time{t1, t2}, t2)
	assert.Equal(t, 2, longest)
	assert.Equal(t, 2, current)

	// Yerel saat dilimi UTC gün sınırını etkilemez
	loc := time.FixedZone("UTC+2", 2*3600)
	longest2, current2 := rewards.Streak([]time.Time{t1.In(loc), t2.In(loc)}, t2)
	assert.Equal(t, longest, longest2)
	assert.Equal(t, current, current2)
}

func TestStreak_Empty(t *testing.T) {
	longest, current := rewards.Streak(nil, day(0))
	assert.Zero(t, longest)
	assert.Zero(t, current)
}
