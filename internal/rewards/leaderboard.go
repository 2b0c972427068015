package rewards

import (
	"sort"
	"time"
)

type Standing struct {
	UserID           uint      `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	CompletedOrders  int       `json:"completed_orders"`
	AccountCreatedAt time.Time `json:"-"`
	Rank             int       `json:"rank"`
}

// Rank: Tamamlanmış sipariş sayısına göre azalan sıralama. Eşitlik
// deterministik kırılır: önce daha eski hesap, o da eşitse küçük user id.
// Aynı girdiyle iki hesaplama her zaman aynı sırayı ve rank'leri üretir.
func Rank(standings []Standing) []Standing {
	ranked := make([]Standing, len(standings))
	copy(ranked, standings)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CompletedOrders != ranked[j].CompletedOrders {
			return ranked[i].CompletedOrders > ranked[j].CompletedOrders
		}
		if !ranked[i].AccountCreatedAt.Equal(ranked[j].AccountCreatedAt) {
			return ranked[i].AccountCreatedAt.Before(ranked[j].AccountCreatedAt)
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
