package stock

import (
	"koffieblik-backend/internal/auth"
	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type StockTakeResponse struct {
	ID          uint   `json:"id"`
	Status      string `json:"status"`
	StartedBy   uint   `json:"started_by"`
	CompletedBy *uint  `json:"completed_by,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toStockTakeResponse(st models.StockTake) StockTakeResponse {
	res := StockTakeResponse{
		ID:        st.ID,
		Status:    string(st.Status),
		StartedBy: st.StartedBy,
		StartedAt: st.StartedAt.Format("2006-01-02 15:04:05"),
	}
	if st.CompletedBy != nil {
		res.CompletedBy = st.CompletedBy
	}
	if st.CompletedAt != nil {
		res.CompletedAt = st.CompletedAt.Format("2006-01-02 15:04:05")
	}
	return res
}

// POST /api/stock-take/start
func StartStockTakeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		st, err := StartStockTake(database.DB, actorID)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toStockTakeResponse(*st))
	}
}

// POST /api/stock-take/complete — stock_take_id verilmezse tek aktif sayım
// kapatılır
func CompleteStockTakeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		var body struct {
			StockTakeID *uint `json:"stock_take_id"`
		}
		// Gövde opsiyonel
		_ = c.BodyParser(&body)

		st, err := CompleteStockTake(database.DB, body.StockTakeID, actorID)
		if err != nil {
			return err
		}

		return c.JSON(toStockTakeResponse(*st))
	}
}
