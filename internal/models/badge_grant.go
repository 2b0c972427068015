package models

import "time"

// BadgeGrant: Kazanılmış rozet kaydı. Rozetler monoton: bir kez verilen rozet
// geçmiş yeniden hesaplansa bile geri alınmaz, bu yüzden grant'ler kalıcı
// satır olarak tutulur.
type BadgeGrant struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_badge_grant_user_badge"`
	BadgeID   string `gorm:"size:50;not null;uniqueIndex:idx_badge_grant_user_badge"`
	GrantedAt time.Time
}
