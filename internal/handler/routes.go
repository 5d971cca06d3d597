package handler

import (
	"go-scan-pos/internal/middleware"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Orders    *OrderHandler
	Outbound  *OutboundHandler
	Dashboard *DashboardHandler
	Users     *UserHandler
	Roles     *RoleHandler
}

// Register mounts the /api/v1 routes. Everything except login requires a
// valid token, privileges are checked per route.
func Register(app *fiber.App, h Handlers, users repository.UserRepository) {
	api := app.Group("/api/v1")
	requirePriv := middleware.RequirePrivilege
	// managers that can change orders can always read them
	viewOrders := middleware.RequireAnyPrivilege(model.PrivOrderView, model.PrivOrderManage)
	viewLogs := middleware.RequireAnyPrivilege(model.PrivInventoryView, model.PrivInventoryAdjust)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(users))

	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)

	// Dashboard
	protected.Get("/dashboard/stats", requirePriv(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/sales-trend", requirePriv(model.PrivDashboardView), h.Dashboard.GetSalesTrend)

	// Products and stock
	protected.Get("/products", h.Inventory.GetProducts)
	protected.Get("/products/barcode/:barcode", h.Inventory.GetProductByBarcode)
	protected.Get("/products/:id", h.Inventory.GetProduct)
	protected.Post("/products", requirePriv(model.PrivProductCreate), h.Inventory.CreateProduct)
	protected.Put("/products/:id", requirePriv(model.PrivProductUpdate), h.Inventory.UpdateProduct)
	protected.Post("/products/:id/stock", requirePriv(model.PrivInventoryAdjust), h.Inventory.AdjustStock)
	protected.Get("/products/:id/inventory-logs", viewLogs, h.Inventory.GetInventoryLogs)
	protected.Post("/inventory/adjustments", requirePriv(model.PrivInventoryAdjust), h.Inventory.CreateAdjustment)

	// Orders
	protected.Post("/orders", requirePriv(model.PrivOrderCreate), h.Orders.CreateOrder)
	protected.Get("/orders", viewOrders, h.Orders.GetOrders)
	protected.Get("/orders/number/:number", viewOrders, h.Orders.GetOrderByNumber)
	protected.Get("/orders/:id", viewOrders, h.Orders.GetOrder)
	protected.Patch("/orders/:id/status", requirePriv(model.PrivOrderManage), h.Orders.UpdateOrderStatus)
	protected.Delete("/orders/:id", requirePriv(model.PrivOrderManage), h.Orders.DeleteOrder)

	// Outbound scans
	protected.Post("/outbound", requirePriv(model.PrivOutboundCreate), h.Outbound.RecordOutbound)
	protected.Get("/outbound", requirePriv(model.PrivOutboundView), h.Outbound.GetOutbound)
	protected.Get("/outbound/stats", requirePriv(model.PrivOutboundView), h.Outbound.GetStats)
	protected.Get("/outbound/popular", requirePriv(model.PrivOutboundView), h.Outbound.GetPopular)

	// Operators
	protected.Get("/users", requirePriv(model.PrivOperatorManage), h.Users.GetUsers)
	protected.Post("/users", requirePriv(model.PrivOperatorManage), h.Users.CreateUser)
	protected.Patch("/users/:id/status", requirePriv(model.PrivOperatorManage), h.Users.SetUserStatus)
	protected.Get("/roles", h.Roles.GetRoles)
	protected.Get("/privileges", h.Roles.GetPrivileges)
}
