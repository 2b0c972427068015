package rewards

import (
	"strconv"
	"time"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/auth"
	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ShopLocation: night_owl için yerel saat dilimi; main config'den set eder.
var ShopLocation = time.UTC

type userStats struct {
	TotalOrders    int
	AccountAgeDays int
	LongestStreak  int
	CurrentStreak  int
	OrderTimes     []time.Time
}

// gatherStats: Kalıcı sipariş geçmişinden türetilen istatistikler. Sadece
// completed siparişler sayılır; failed/pending/cancelled analitiğe girmez.
func gatherStats(db *gorm.DB, userID uint, now time.Time) (*userStats, error) {
	var profile models.UserProfile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, apperr.NotFound("Kullanıcı profili bulunamadı")
	}

	var orders []models.Order
	if err := db.
		Where("user_id = ? AND status = ?", userID, models.OrderStatusCompleted).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		return nil, apperr.IO(err, "Sipariş geçmişi okunamadı")
	}

	times := make([]time.Time, 0, len(orders))
	for _, o := range orders {
		times = append(times, o.CreatedAt)
	}

	longest, current := Streak(times, now)

	return &userStats{
		TotalOrders:    len(orders),
		AccountAgeDays: int(now.Sub(profile.CreatedAt).Hours() / 24),
		LongestStreak:  longest,
		CurrentStreak:  current,
		OrderTimes:     times,
	}, nil
}

// GET /api/gamification/stats
func GetStatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		stats, err := gatherStats(database.DB, userID, time.Now())
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":          true,
			"total_orders":     stats.TotalOrders,
			"account_age_days": stats.AccountAgeDays,
			"longest_streak":   stats.LongestStreak,
			"current_streak":   stats.CurrentStreak,
		})
	}
}

// GET /api/gamification/badges — hesaplanan rozetler kalıcı grant'lerle
// birleştirilir: bir kez kazanılan rozet yeniden hesaplamada asla düşmez
func GetBadgesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		stats, err := gatherStats(database.DB, userID, time.Now())
		if err != nil {
			return err
		}

		earned := EvaluateBadges(stats.TotalOrders, stats.LongestStreak, stats.AccountAgeDays, stats.OrderTimes, ShopLocation)

		// Yeni kazanılanları kalıcılaştır
		for _, id := range earned {
			grant := models.BadgeGrant{UserID: userID, BadgeID: id}
			if err := database.DB.
				Where("user_id = ? AND badge_id = ?", userID, id).
				Attrs(models.BadgeGrant{UserID: userID, BadgeID: id, GrantedAt: time.Now()}).
				FirstOrCreate(&grant).Error; err != nil {
				return apperr.IO(err, "Rozet kaydedilemedi")
			}
		}

		var grants []models.BadgeGrant
		if err := database.DB.
			Where("user_id = ?", userID).
			Order("granted_at asc, id asc").
			Find(&grants).Error; err != nil {
			return apperr.IO(err, "Rozetler okunamadı")
		}

		badges := make([]BadgeDefinition, 0, len(grants))
		for _, g := range grants {
			if d, ok := DefinitionByID(g.BadgeID); ok {
				badges = append(badges, d)
			}
		}

		return c.JSON(fiber.Map{
			"success": true,
			"badges":  badges,
		})
	}
}

// GET /api/gamification/leaderboard?limit=10
func GetLeaderboardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := auth.ActorID(c); err != nil {
			return err
		}

		limit := 10
		if q := c.Query("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "limit geçersiz")
			}
			limit = n
		}

		type row struct {
			UserID          uint
			DisplayName     string
			CompletedOrders int
			CreatedAt       time.Time
		}
		var rows []row
		err := database.DB.Model(&models.UserProfile{}).
			Select(`user_profiles.user_id,
				user_profiles.display_name,
				COUNT(orders.id) AS completed_orders,
				user_profiles.created_at`).
			Joins("LEFT JOIN orders ON orders.user_id = user_profiles.user_id AND orders.status = ?", models.OrderStatusCompleted).
			Group("user_profiles.user_id, user_profiles.display_name, user_profiles.created_at").
			Scan(&rows).Error
		if err != nil {
			return apperr.IO(err, "Liderlik tablosu okunamadı")
		}

		standings := make([]Standing, 0, len(rows))
		for _, r := range rows {
			standings = append(standings, Standing{
				UserID:           r.UserID,
				DisplayName:      r.DisplayName,
				CompletedOrders:  r.CompletedOrders,
				AccountCreatedAt: r.CreatedAt,
			})
		}

		ranked := Rank(standings)
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}

		return c.JSON(fiber.Map{
			"success":     true,
			"leaderboard": ranked,
		})
	}
}
