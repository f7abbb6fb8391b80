package handler

import (
	"toko-beras-pos/internal/middleware"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/ws"
	"toko-beras-pos/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Router holds every handler plus what the auth middleware needs.
type Router struct {
	Auth      *AuthHandler
	Products  *ProductHandler
	Stock     *StockHandler
	Sales     *SaleHandler
	Dashboard *DashboardHandler
	Roles     *RoleHandler

	UserRepo repository.UserRepository
	Tokens   *jwt.Manager
	// Hub is optional; without it /ws is not mounted.
	Hub *ws.Hub
}

func (r Router) Register(app *fiber.App) {
	api := app.Group("/api/v1")
	can := middleware.RequirePrivilege

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", r.Auth.Login)
	auth.Post("/reset-password", r.Auth.ResetPassword)
	auth.Post("/validate-token", r.Auth.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(r.UserRepo, r.Tokens))

	// Dashboard
	protected.Get("/dashboard/stats", can(model.PrivDashboardView), r.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", can(model.PrivDashboardView), r.Dashboard.GetStockMovement)

	// Catalog
	protected.Get("/products", can(model.PrivProductView), r.Products.GetProducts)
	protected.Get("/products/low-stock", can(model.PrivProductView), r.Products.GetLowStock)
	protected.Get("/products/:id", can(model.PrivProductView), r.Products.GetProduct)
	protected.Post("/products", can(model.PrivProductCreate), r.Products.CreateProduct)
	protected.Put("/products/:id", can(model.PrivProductUpdate), r.Products.UpdateProduct)
	protected.Put("/products/:id/price", can(model.PrivProductUpdate), can(model.PrivProductViewCost), r.Products.SetPrice)
	protected.Post("/products/:id/deactivate", can(model.PrivProductUpdate), r.Products.Deactivate)
	protected.Post("/products/:id/activate", can(model.PrivProductUpdate), r.Products.Activate)
	protected.Get("/products/:id/price-history", can(model.PrivProductViewCost), r.Products.PriceHistory)

	// Stock ledger
	protected.Get("/products/:id/movements", can(model.PrivStockView), r.Products.GetMovements)
	protected.Post("/products/:id/movements", can(model.PrivStockAdjust), r.Products.ApplyMovement)
	protected.Put("/products/:id/stock", can(model.PrivStockAdjust), r.Products.SetStock)
	protected.Get("/products/:id/reconcile", can(model.PrivStockReconcile), r.Products.Reconcile)
	protected.Get("/movements", can(model.PrivStockView), r.Stock.GetMovements)
	protected.Post("/movements/bulk", can(model.PrivStockAdjust), r.Stock.ApplyBulk)
	protected.Get("/reconcile", can(model.PrivStockReconcile), r.Stock.ReconcileAll)

	// Sales
	protected.Post("/cart/validate", can(model.PrivSaleCreate), r.Sales.ValidateCart)
	protected.Post("/sales", can(model.PrivSaleCreate), r.Sales.CreateSale)
	protected.Get("/sales", can(model.PrivSaleView), r.Sales.GetSales)
	protected.Get("/sales/:id", can(model.PrivSaleView), r.Sales.GetSale)
	protected.Post("/sales/:id/cancel", can(model.PrivSaleCancel), r.Sales.Cancel)
	protected.Post("/sales/:id/confirm-payment", can(model.PrivSaleProcess), r.Sales.ConfirmPayment)
	protected.Post("/sales/:id/reject-payment", can(model.PrivSaleProcess), r.Sales.RejectPayment)
	protected.Post("/sales/:id/ready", can(model.PrivSaleProcess), r.Sales.MarkReady)
	protected.Post("/sales/:id/complete", middleware.RequireAnyPrivilege(model.PrivSaleCreate, model.PrivSaleProcess), r.Sales.Complete)

	// Roles & privileges
	protected.Get("/roles", r.Roles.GetRoles)
	protected.Get("/privileges", r.Roles.GetPrivileges)

	if r.Hub == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(r.Hub.Serve))
}
