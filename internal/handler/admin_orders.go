package handler

// This file defines the admin order endpoints.  The router restricts
// them to identities holding the orders:manage capability.

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/model"
    "github.com/bookstore/bookstore-api/internal/repository"
)

// AdminOrderStore is the admin side of repository.OrderRepo.
type AdminOrderStore interface {
    ListAll(ctx context.Context, f repository.OrderFilter) ([]model.OrderDetail, int64, error)
    GetByID(ctx context.Context, orderID uint64) (*model.OrderDetail, error)
    UpdateStatus(ctx context.Context, orderID uint64, status *model.OrderStatus, payment *model.PaymentStatus) (*model.OrderDetail, error)
}

type AdminOrderHandler struct {
    Orders AdminOrderStore
    Log    *zap.Logger
}

func NewAdminOrderHandler(orders AdminOrderStore, log *zap.Logger) *AdminOrderHandler {
    return &AdminOrderHandler{Orders: orders, Log: nopIfNil(log)}
}

// List handles GET /v1/admin/orders?status=&page=&page_size=.
func (h *AdminOrderHandler) List(c echo.Context) error {
    page, ps := pageParams(c, 20)
    f := repository.OrderFilter{Page: page, PageSize: ps}
    if s := strings.ToLower(strings.TrimSpace(c.QueryParam("status"))); s != "" {
        f.Status = model.OrderStatus(s)
        if !f.Status.Valid() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
        }
    }
    items, total, err := h.Orders.ListAll(c.Request().Context(), f)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data":      items,
        "total":     total,
        "page":      page,
        "page_size": ps,
    })
}

// Get handles GET /v1/admin/orders/:id.
func (h *AdminOrderHandler) Get(c echo.Context) error {
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    order, err := h.Orders.GetByID(c.Request().Context(), orderID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, order)
}

// UpdateStatus handles PUT /v1/admin/orders/:id/status with body
// {"status": "confirmed", "payment_status": "paid"}; either field may be
// omitted but not both.
func (h *AdminOrderHandler) UpdateStatus(c echo.Context) error {
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    var body struct {
        Status        *string `json:"status"`
        PaymentStatus *string `json:"payment_status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    var status *model.OrderStatus
    var payment *model.PaymentStatus
    if body.Status != nil {
        s := model.OrderStatus(strings.ToLower(strings.TrimSpace(*body.Status)))
        status = &s
    }
    if body.PaymentStatus != nil {
        p := model.PaymentStatus(strings.ToLower(strings.TrimSpace(*body.PaymentStatus)))
        payment = &p
    }
    order, err := h.Orders.UpdateStatus(c.Request().Context(), orderID, status, payment)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    fields := []zap.Field{zap.Uint64("order_id", orderID)}
    if status != nil {
        fields = append(fields, zap.String("status", string(*status)))
    }
    if payment != nil {
        fields = append(fields, zap.String("payment_status", string(*payment)))
    }
    h.Log.Info("order status updated", fields...)
    return c.JSON(http.StatusOK, order)
}
