package rewards

import (
	"sort"
	"time"
)

// Streak: Sipariş zamanlarını UTC takvim günlerine indirger ve ardışık gün
// serilerini bulur. Gün sınırı politikası SABİT UTC'dir; dükkanın yerel saat
// dilimi streak hesabını etkilemez (night_owl hariç, bkz. EvaluateBadges).
//
// longest: en uzun ardışık gün serisi. current: kuyruktaki seri, ancak son
// günü now'un UTC günü veya bir önceki günse; daha eskiyse seri kopmuştur ve
// current = 0.
func Streak(orderTimes []time.Time, now time.Time) (longest, current int) {
	if len(orderTimes) == 0 {
		return 0, 0
	}

	seen := make(map[int64]struct{}, len(orderTimes))
	days := make([]int64, 0, len(orderTimes))
	for _, t := range orderTimes {
		d := utcDay(t)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// Kuyruk serisi ancak bugüne veya düne dokunuyorsa "güncel"
	today := utcDay(now)
	last := days[len(days)-1]
	if today-last <= 1 {
		current = run
	}
	return longest, current
}

// utcDay: UTC gece yarısından itibaren gün sayısı.
func utcDay(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}
