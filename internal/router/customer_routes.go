package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookstore/bookstore-api/internal/access"
	"github.com/bookstore/bookstore-api/internal/handler"
	"github.com/bookstore/bookstore-api/internal/middleware"
)

// RegisterCustomer registers the cart and order endpoints under /v1.
// Every route requires a valid JWT and the matching capability, so an
// admin token can read nothing here and cannot check out.  writeLimit
// throttles cart writes; checkoutLimit is the stricter per-user bucket
// on POST /v1/orders.
func RegisterCustomer(e *echo.Echo, cart *handler.CartHandler, orders *handler.OrderHandler, jwtSecret string, policy access.Policy, writeLimit, checkoutLimit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	manageCart := middleware.RequireCapability(policy, access.ManageCart)
	g.GET("/cart", cart.List, manageCart)
	g.POST("/cart", cart.Add, manageCart, writeLimit)
	g.PUT("/cart/:id", cart.Update, manageCart, writeLimit)
	g.DELETE("/cart/:id", cart.Remove, manageCart, writeLimit)

	g.POST("/orders", orders.Place, middleware.RequireCapability(policy, access.Checkout), checkoutLimit)
	readOwn := middleware.RequireCapability(policy, access.ViewOwnOrders)
	g.GET("/orders", orders.List, readOwn)
	g.GET("/orders/:id", orders.Get, readOwn)
}
