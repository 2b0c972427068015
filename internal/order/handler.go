package order

import (
	"strconv"
	"strings"

	"koffieblik-backend/internal/auth"
	"koffieblik-backend/internal/catalog"
	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OrderLineRequest struct {
	ProductID   *uint  `json:"product_id"`
	ProductName string `json:"product_name"`
	// product: eski istemciler için id-veya-isim alanı. Koklama SADECE
	// burada, API sınırında yapılır ve catalog.Ref'e çevrilir.
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Products       []OrderLineRequest `json:"products"`
	IdempotencyKey string             `json:"idempotency_key"`
}

type OrderItemResponse struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderResponse struct {
	ID         uint                `json:"id"`
	UserID     uint                `json:"user_id"`
	Status     string              `json:"status"`
	PaidStatus string              `json:"paid_status"`
	Total      decimal.Decimal     `json:"total"`
	Items      []OrderItemResponse `json:"items"`
	CreatedAt  string              `json:"created_at"`
}

func toOrderResponse(o models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return OrderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		PaidStatus: string(o.PaidStatus),
		Total:      o.Total,
		Items:      items,
		CreatedAt:  o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func lineFromRequest(r OrderLineRequest) (Line, error) {
	var ref catalog.Ref
	switch {
	case r.ProductID != nil:
		ref = catalog.RefByID(*r.ProductID)
	case strings.TrimSpace(r.ProductName) != "":
		ref = catalog.RefByName(strings.TrimSpace(r.ProductName))
	case strings.TrimSpace(r.Product) != "":
		// Legacy alan: tamamı rakamsa id, değilse isim
		v := strings.TrimSpace(r.Product)
		if _, err := strconv.ParseUint(v, 10, 32); err == nil {
			ref = catalog.Ref{Kind: catalog.ByID, Value: v}
		} else {
			ref = catalog.RefByName(v)
		}
	default:
		return Line{}, fiber.NewError(fiber.StatusBadRequest, "Her satırda ürün id veya adı olmalı")
	}
	return Line{Ref: ref, Quantity: r.Quantity}, nil
}

// POST /api/orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		key := strings.TrimSpace(body.IdempotencyKey)
		if key == "" {
			key = strings.TrimSpace(c.Get("Idempotency-Key"))
		}

		lines := make([]Line, 0, len(body.Products))
		for _, p := range body.Products {
			line, err := lineFromRequest(p)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		o, err := Create(database.DB, userID, lines, key)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":  true,
			"order_id": o.ID,
			"total":    o.Total,
		})
	}
}

// GET /api/orders — müşteri kendi siparişlerini görür; barista/admin
// ?user_id= ile filtreleyebilir veya tümünü listeler
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)

		var filter *uint
		if role == models.RoleBarista || role == models.RoleAdmin {
			if q := c.Query("user_id"); q != "" {
				id, err := strconv.ParseUint(q, 10, 32)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "user_id geçersiz")
				}
				uid := uint(id)
				filter = &uid
			}
		} else {
			filter = &actorID
		}

		orders, err := List(database.DB, filter)
		if err != nil {
			return err
		}

		res := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			res = append(res, toOrderResponse(o))
		}
		return c.JSON(res)
	}
}

// PUT /api/orders/:id/status (barista/admin)
func UpdateOrderStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.ActorID(c)
		if err != nil {
			return err
		}

		orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sipariş id geçersiz")
		}

		var body struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		o, err := SetStatus(database.DB, uint(orderID), models.OrderStatus(body.Status), actorID)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"order":   toOrderResponse(*o),
		})
	}
}

// POST /api/orders/:id/pay
func PayOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := auth.ActorID(c); err != nil {
			return err
		}

		orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sipariş id geçersiz")
		}

		var body struct {
			Method string `json:"method"`
		}
		_ = c.BodyParser(&body)

		method := models.PaymentMethod(body.Method)
		if method == "" {
			method = models.PaymentMethodCard
		}
		if method != models.PaymentMethodCard && method != models.PaymentMethodCash {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ödeme yöntemi")
		}

		o, err := MarkPaid(database.DB, uint(orderID), method)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"order":   toOrderResponse(*o),
		})
	}
}
