package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookstore/bookstore-api/internal/access"
	"github.com/bookstore/bookstore-api/internal/handler"
	"github.com/bookstore/bookstore-api/internal/middleware"
)

// RegisterAdmin registers the back-office endpoints under /v1/admin.
// Order management, catalog edits and account status are gated by
// separate capabilities.
func RegisterAdmin(e *echo.Echo, books *handler.BookHandler, orders *handler.AdminOrderHandler, users *handler.AdminUserHandler, jwtSecret string, policy access.Policy) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret))

	// ---- Orders ----
	manageOrders := middleware.RequireCapability(policy, access.ManageOrders)
	g.GET("/orders", orders.List, manageOrders)
	g.GET("/orders/:id", orders.Get, manageOrders)
	g.PUT("/orders/:id/status", orders.UpdateStatus, manageOrders)

	// ---- Books ----
	manageInventory := middleware.RequireCapability(policy, access.ManageInventory)
	g.PUT("/books/:id/price", books.UpdatePrice, manageInventory)
	g.POST("/books/:id/stock", books.AdjustStock, manageInventory)

	// ---- Users ----
	g.PUT("/users/:id/status", users.UpdateStatus, middleware.RequireCapability(policy, access.ManageUsers))
}
