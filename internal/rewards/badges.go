package rewards

import "time"

type BadgeType string

const (
	BadgeTypeOrders     BadgeType = "orders"
	BadgeTypeStreak     BadgeType = "streak"
	BadgeTypeAccountAge BadgeType = "account_age"
	BadgeTypeSpecial    BadgeType = "special"
)

type BadgeDefinition struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      BadgeType `json:"type"`
	Threshold int       `json:"threshold,omitempty"`
}

// Definitions: Statik rozet tablosu. Eşikler sipariş sayısı, streak günü
// veya hesap yaşı (gün) cinsindendir; special rozetlerin eşiği yoktur.
var Definitions = []BadgeDefinition{
	// Orders
	{ID: "first_order", Name: "First Order", Type: BadgeTypeOrders, Threshold: 1},
	{ID: "five_orders", Name: "5 Orders", Type: BadgeTypeOrders, Threshold: 5},
	{ID: "ten_orders", Name: "10 Orders", Type: BadgeTypeOrders, Threshold: 10},

	// Streaks
	{ID: "three_day_streak", Name: "3 Day Streak", Type: BadgeTypeStreak, Threshold: 3},
	{ID: "seven_day_streak", Name: "7 Day Streak", Type: BadgeTypeStreak, Threshold: 7},

	// Account age
	{ID: "week_member", Name: "1 Week Member", Type: BadgeTypeAccountAge, Threshold: 7},
	{ID: "month_member", Name: "1 Month Member", Type: BadgeTypeAccountAge, Threshold: 30},
	{ID: "year_member", Name: "1 Year Member", Type: BadgeTypeAccountAge, Threshold: 365},

	// Special
	{ID: "night_owl", Name: "Night Owl", Type: BadgeTypeSpecial},
}

func DefinitionByID(id string) (BadgeDefinition, bool) {
	for _, d := range Definitions {
		if d.ID == id {
			return d, true
		}
	}
	return BadgeDefinition{}, false
}

// EvaluateBadges: Geçmişin saf ve monoton fonksiyonu: girdiler büyüdükçe
// sonuç kümesi asla küçülmez. night_owl tamamlanmış herhangi bir siparişin
// loc'a göre yerel saati [0,5) aralığındaysa verilir; diğer tüm gün
// hesapları UTC'dir.
func EvaluateBadges(totalOrders, longestStreak, accountAgeDays int, orderTimes []time.Time, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}

	earned := make([]string, 0)
	for _, d := range Definitions {
		switch d.Type {
		case BadgeTypeOrders:
			if totalOrders >= d.Threshold {
				earned = append(earned, d.ID)
			}
		case BadgeTypeStreak:
			if longestStreak >= d.Threshold {
				earned = append(earned, d.ID)
			}
		case BadgeTypeAccountAge:
			if accountAgeDays >= d.Threshold {
				earned = append(earned, d.ID)
			}
		case BadgeTypeSpecial:
			if d.ID == "night_owl" && hasNightOrder(orderTimes, loc) {
				earned = append(earned, d.ID)
			}
		}
	}
	return earned
}

func hasNightOrder(orderTimes []time.Time, loc *time.Location) bool {
	for _, t := range orderTimes {
		hour := t.In(loc).Hour()
		if hour >= 0 && hour < 5 {
			return true
		}
	}
	return false
}
