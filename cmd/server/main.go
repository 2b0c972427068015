package main

import (
	"errors"
	"log"
	"strings"
	"time"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/auth"
	"koffieblik-backend/internal/catalog"
	"koffieblik-backend/internal/config"
	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/loyalty"
	"koffieblik-backend/internal/models"
	"koffieblik-backend/internal/order"
	"koffieblik-backend/internal/rewards"
	"koffieblik-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		rewards.ShopLocation = loc
	} else {
		log.Printf("[WARN] SHOP_TIMEZONE çözülemedi (%s), UTC kullanılıyor", cfg.Timezone)
	}

	// Sipariş tamamlandı olayı: teslimat dışarıda, burada sadece duyuru
	order.OnCompleted = func(o models.Order) {
		log.Printf("Sipariş tamamlandı: id=%d user=%d total=%s", o.ID, o.UserID, o.Total.StringFixed(2))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/signup", auth.SignupHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Katalog
	protected.Get("/products", catalog.ListProductsHandler())

	// Siparişler
	protected.Post("/orders", order.CreateOrderHandler())
	protected.Get("/orders", order.ListOrdersHandler())
	protected.Post("/orders/:id/pay", order.PayOrderHandler())

	// Sadakat puanları
	protected.Post("/loyalty/redeem", loyalty.RedeemHandler())
	protected.Get("/loyalty/history", loyalty.PointsHistoryHandler())

	// Gamification
	protected.Get("/gamification/stats", rewards.GetStatsHandler())
	protected.Get("/gamification/badges", rewards.GetBadgesHandler())
	protected.Get("/gamification/leaderboard", rewards.GetLeaderboardHandler())

	// Barista/admin operasyonları
	staff := protected.Group("")
	staff.Use(auth.RequireRole(models.RoleBarista, models.RoleAdmin))

	staff.Put("/orders/:id/status", order.UpdateOrderStatusHandler())

	staff.Post("/stock", stock.CreateStockHandler())
	staff.Get("/stock", stock.ListStockHandler())
	staff.Patch("/stock", stock.UpdateStockHandler())
	staff.Patch("/stock/:id", stock.UpdateStockHandler())
	staff.Get("/stock/:id/adjustments", stock.ListAdjustmentsHandler())

	staff.Post("/stock-take/start", stock.StartStockTakeHandler())
	staff.Post("/stock-take/complete", stock.CompleteStockTakeHandler())

	// Sadece admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/products", catalog.CreateProductHandler())
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", catalog.DeleteProductHandler())
	adminRoutes.Delete("/stock/:id", stock.DeleteStockHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}

// errorHandler: apperr taksonomisini HTTP koduna çevirir. IO hataları
// correlation id ile loglanır, kullanıcıya generic mesaj döner.
func errorHandler(c *fiber.Ctx, err error) error {
	if ae, ok := apperr.As(err); ok {
		if ae.Kind == apperr.KindIO {
			correlationID := uuid.NewString()
			log.Printf("[ERROR] correlation_id=%s %s %s: %v", correlationID, c.Method(), c.Path(), ae)
			return c.Status(ae.HTTPStatus()).JSON(fiber.Map{
				"error":          "Beklenmeyen sunucu hatası",
				"correlation_id": correlationID,
			})
		}

		payload := fiber.Map{"error": ae.Message}
		if len(ae.Missing) > 0 {
			payload["missing"] = ae.Missing
		}
		if ae.Kind == apperr.KindConflict {
			payload["retryable"] = ae.Retryable
		}
		return c.Status(ae.HTTPStatus()).JSON(payload)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	correlationID := uuid.NewString()
	log.Printf("[ERROR] correlation_id=%s beklenmeyen hata: %v", correlationID, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":          "Beklenmeyen sunucu hatası",
		"correlation_id": correlationID,
	})
}
