package stock

import (
	"strings"

	"koffieblik-backend/internal/auth"
	"koffieblik-backend/internal/catalog"
	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type StockItemResponse struct {
	ID               uint     `json:"id"`
	Name             string   `json:"name"`
	Quantity         float64  `json:"quantity"`
	UnitType         string   `json:"unit_type"`
	MaxCapacity      *float64 `json:"max_capacity,omitempty"`
	ReservedQuantity float64  `json:"reserved_quantity"`
}

type CreateStockRequest struct {
	Name        string   `json:"name"`
	Quantity    float64  `json:"quantity"`
	UnitType    string   `json:"unit_type"`
	MaxCapacity *float64 `json:"max_capacity"`
}

// UpdateStockRequest: id, name (lookup) ve alanlar tek gövdede. Referans
// etiketlemesi burada BİR KEZ yapılır; servis katmanı catalog.Ref alır.
type UpdateStockRequest struct {
	ID         *uint   `json:"id"`
	LookupName *string `json:"lookup_name"`
	Reference  string  `json:"reference"`

	Name             *string  `json:"name"`
	Quantity         *float64 `json:"quantity"`
	UnitType         *string  `json:"unit_type"`
	MaxCapacity      *float64 `json:"max_capacity"`
	ReservedQuantity *float64 `json:"reserved_quantity"`
}

func toStockResponse(s models.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:               s.ID,
		Name:             s.Name,
		Quantity:         s.Quantity,
		UnitType:         s.UnitType,
		MaxCapacity:      s.MaxCapacity,
		ReservedQuantity: s.ReservedQuantity,
	}
}

// POST /api/stock
func CreateStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.UnitType = strings.TrimSpace(body.UnitType)

		if body.Name == "" || body.UnitType == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name ve unit_type zorunlu")
		}
		if body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Quantity negatif olamaz")
		}

		var existing models.StockItem
		if err := database.DB.Where("name = ?", body.Name).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir stok kalemi zaten var")
		}

		item := models.StockItem{
			Name:        body.Name,
			Quantity:    body.Quantity,
			UnitType:    body.UnitType,
			MaxCapacity: body.MaxCapacity,
		}

		if err := database.DB.Create(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok kalemi oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toStockResponse(item))
	}
}

// GET /api/stock
func ListStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []models.StockItem
		if err := database.DB.Order("name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok listelenemedi")
		}

		res := make([]StockItemResponse, 0, len(items))
		for _, s := range items {
			res = append(res, toStockResponse(s))
		}
		return c.JSON(res)
	}
}

// PATCH /api/stock/:id? — id URL'den, gövdeden veya lookup_name'den gelir.
// Eski sistemdeki üç ayrı stok güncelleme endpoint'inin tek karşılığı.
func UpdateStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		var body UpdateStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		var ref catalog.Ref
		switch {
		case c.Params("id") != "":
			ref = catalog.Ref{Kind: catalog.ByID, Value: c.Params("id")}
		case body.ID != nil:
			ref = catalog.RefByID(*body.ID)
		case body.LookupName != nil && strings.TrimSpace(*body.LookupName) != "":
			ref = catalog.RefByName(strings.TrimSpace(*body.LookupName))
		default:
			return fiber.NewError(fiber.StatusBadRequest, "id veya lookup_name zorunlu")
		}

		fields := AdjustFields{
			Name:             body.Name,
			Quantity:         body.Quantity,
			UnitType:         body.UnitType,
			MaxCapacity:      body.MaxCapacity,
			ReservedQuantity: body.ReservedQuantity,
		}

		item, err := Adjust(database.DB, ref, fields, strings.TrimSpace(body.Reference), models.ReferenceTypeUser, actorID)
		if err != nil {
			return err
		}

		return c.JSON(toStockResponse(*item))
	}
}

// GET /api/stock/:id/adjustments
func ListAdjustmentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var item models.StockItem
		if err := database.DB.First(&item, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Stok kalemi bulunamadı")
		}

		var adjustments []models.StockAdjustment
		if err := database.DB.
			Where("stock_item_id = ?", item.ID).
			Order("created_at desc, id desc").
			Find(&adjustments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok hareketleri listelenemedi")
		}

		type AdjustmentResponse struct {
			ID        uint    `json:"id"`
			DeltaQty  float64 `json:"delta_qty"`
			Reference string  `json:"reference"`
			RefType   string  `json:"reference_type"`
			ActorID   uint    `json:"actor_id"`
			CreatedAt string  `json:"created_at"`
		}

		res := make([]AdjustmentResponse, 0, len(adjustments))
		for _, a := range adjustments {
			res = append(res, AdjustmentResponse{
				ID:        a.ID,
				DeltaQty:  a.DeltaQty,
				Reference: a.Reference,
				RefType:   string(a.RefType),
				ActorID:   a.ActorID,
				CreatedAt: a.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{
			"stock_id":    item.ID,
			"item":        item.Name,
			"adjustments": res,
		})
	}
}

// DELETE /api/stock/:id (sadece admin)
func DeleteStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var item models.StockItem
		if err := database.DB.First(&item, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Stok kalemi bulunamadı")
		}

		// Hareket geçmişi append-only: kalem silinse bile adjustments kalır
		if err := database.DB.Delete(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok kalemi silinemedi")
		}

		return c.JSON(fiber.Map{"deleted": item.ID})
	}
}
