package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/model"
)

// CartStore is satisfied by repository.CartRepo.
type CartStore interface {
    ListByUser(ctx context.Context, userID uint64) ([]model.CartItemView, error)
    Add(ctx context.Context, userID, bookID uint64, qty int) (model.CartLine, error)
    UpdateQuantity(ctx context.Context, userID, lineID uint64, qty int) (model.CartLine, error)
    Remove(ctx context.Context, userID, lineID uint64) error
}

// CartHandler exposes the caller's shopping cart.  The JWT middleware
// and the cart capability check run before every method.
type CartHandler struct {
    Cart CartStore
    Log  *zap.Logger
}

func NewCartHandler(cart CartStore, log *zap.Logger) *CartHandler {
    return &CartHandler{Cart: cart, Log: nopIfNil(log)}
}

type cartLineResp struct {
    ID        uint64    `json:"id"`
    BookID    uint64    `json:"book_id"`
    Quantity  int       `json:"quantity"`
    CreatedAt time.Time `json:"created_at"`
}

func toCartLineResp(l model.CartLine) cartLineResp {
    return cartLineResp{ID: l.ID, BookID: l.BookID, Quantity: l.Quantity, CreatedAt: l.CreatedAt}
}

// List handles GET /v1/cart.  The total is informational; checkout
// prices every line again under lock.
func (h *CartHandler) List(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    items, err := h.Cart.ListByUser(c.Request().Context(), id.UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    total := decimal.Zero
    for _, it := range items {
        total = total.Add(it.Subtotal)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items": items,
        "count": len(items),
        "total": total,
    })
}

// Add handles POST /v1/cart with body {"book_id": 1, "quantity": 2}.
// quantity defaults to 1.
func (h *CartHandler) Add(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    var body struct {
        BookID   uint64 `json:"book_id"`
        Quantity *int   `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil || body.BookID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id is required"})
    }
    qty := 1
    if body.Quantity != nil {
        qty = *body.Quantity
    }
    line, err := h.Cart.Add(c.Request().Context(), id.UserID, body.BookID, qty)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, toCartLineResp(line))
}

// Update handles PUT /v1/cart/:id with body {"quantity": n}.
func (h *CartHandler) Update(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    lineID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cart item id"})
    }
    var body struct {
        Quantity int `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    line, err := h.Cart.UpdateQuantity(c.Request().Context(), id.UserID, lineID, body.Quantity)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toCartLineResp(line))
}

// Remove handles DELETE /v1/cart/:id.
func (h *CartHandler) Remove(c echo.Context) error {
    id, err := currentIdentity(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    lineID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cart item id"})
    }
    if err := h.Cart.Remove(c.Request().Context(), id.UserID, lineID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
