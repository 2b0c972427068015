package loyalty

import (
	"strings"

	"koffieblik-backend/internal/auth"
	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RedeemRequest: Hedef kullanıcı ya user_id ya email ile verilir, ikisi
// birden verilirse istek belirsizdir ve reddedilir. İkisi de yoksa
// kimliği doğrulanmış kullanıcının kendisi hedeftir.
type RedeemRequest struct {
	UserID         *uint  `json:"user_id"`
	Email          string `json:"email"`
	Points         int    `json:"points"`
	OrderID        *uint  `json:"order_id"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

// POST /api/loyalty/redeem
func RedeemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		var body RedeemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.UserID != nil && body.Email != "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id ve email birlikte verilemez, hedef belirsiz")
		}

		targetID := actorID
		switch {
		case body.UserID != nil:
			targetID = *body.UserID
		case body.Email != "":
			var user models.User
			if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Bu email ile kullanıcı bulunamadı")
			}
			targetID = user.ID
		}

		// Başkası adına puan kullanımı barista/admin işi
		if targetID != actorID {
			role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
			if role != models.RoleBarista && role != models.RoleAdmin {
				return fiber.NewError(fiber.StatusForbidden, "Başka kullanıcı adına puan kullanamazsın")
			}
		}

		idemKey := strings.TrimSpace(c.Get("Idempotency-Key"))
		if idemKey == "" {
			idemKey = strings.TrimSpace(body.IdempotencyKey)
		}

		remaining, err := Redeem(database.DB, targetID, body.Points, body.OrderID, strings.TrimSpace(body.Description), idemKey)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":          true,
			"user_id":          targetID,
			"redeemed_points":  body.Points,
			"remaining_points": remaining,
		})
	}
}

// GET /api/loyalty/history
func PointsHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		var entries []models.LoyaltyPoint
		if err := database.DB.
			Where("user_id = ?", userID).
			Order("created_at desc, id desc").
			Find(&entries).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Puan geçmişi listelenemedi")
		}

		total, err := Balance(database.DB, userID)
		if err != nil {
			return err
		}

		type EntryResponse struct {
			ID          uint   `json:"id"`
			OrderID     *uint  `json:"order_id,omitempty"`
			Points      int    `json:"points"`
			Type        string `json:"type"`
			Description string `json:"description"`
			CreatedAt   string `json:"created_at"`
		}

		history := make([]EntryResponse, 0, len(entries))
		for _, e := range entries {
			history = append(history, EntryResponse{
				ID:          e.ID,
				OrderID:     e.OrderID,
				Points:      e.Points,
				Type:        string(e.Type),
				Description: e.Description,
				CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{
			"history": history,
			"total":   total,
		})
	}
}
