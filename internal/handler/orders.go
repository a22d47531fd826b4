package handler

// This file defines the customer order endpoints.  POST /v1/orders runs
// checkout over the caller's cart; the read endpoints only ever show the
// caller's own orders.

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/model"
    "github.com/bookstore/bookstore-api/internal/service"
)

// Checkouter is satisfied by *service.CheckoutService.
type Checkouter interface {
    Checkout(ctx context.Context, req service.CheckoutRequest) (*model.OrderDetail, error)
}

// CustomerOrderStore is the read side of repository.OrderRepo scoped to
// one customer.
type CustomerOrderStore interface {
    GetByIDForUser(ctx context.Context, orderID, userID uint64) (*model.OrderDetail, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.OrderDetail, error)
}

// OrderHandler groups the customer order endpoints.
type OrderHandler struct {
    Checkout Checkouter
    Orders   CustomerOrderStore
    Log      *zap.Logger
}

func NewOrderHandler(checkout Checkouter, orders CustomerOrderStore, log *zap.Logger) *OrderHandler {
    if checkout == nil || orders == nil {
        panic("nil dependency passed to NewOrderHandler")
    }
    return &OrderHandler{Checkout: checkout, Orders: orders, Log: nopIfNil(log)}
}

// Place handles POST /v1/orders with body {"shipping_address": "..."}.
// On success it returns 201 with the committed order.  Stock conflicts
// return 400 naming the book and how many copies are left; a book that
// no longer exists returns 404 with its id.
func (h *OrderHandler) Place(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    var body struct {
        ShippingAddress string `json:"shipping_address"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    order, err := h.Checkout.Checkout(c.Request().Context(), service.CheckoutRequest{
        Actor:           id,
        ShippingAddress: body.ShippingAddress,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, order)
}

// List handles GET /v1/orders and returns the caller's orders, newest
// first.
func (h *OrderHandler) List(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    orders, err := h.Orders.ListByUser(c.Request().Context(), id.UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items": orders,
        "count": len(orders),
    })
}

// Get handles GET /v1/orders/:id.  An order of another customer is
// reported as not found.
func (h *OrderHandler) Get(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    order, err := h.Orders.GetByIDForUser(c.Request().Context(), orderID, id.UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, order)
}
