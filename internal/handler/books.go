package handler

// This file defines the catalog handlers: public browsing of books and
// the admin price and stock edits.  Browsing responses are cached in
// Redis by the router, so every admin write purges the cache.

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/model"
    "github.com/bookstore/bookstore-api/internal/repository"
)

// BookStore is the catalog side of repository.BookRepo.
type BookStore interface {
    List(ctx context.Context, q repository.BookQuery) ([]model.Book, int64, error)
    GetByID(ctx context.Context, bookID uint64) (model.Book, error)
    UpdatePrice(ctx context.Context, bookID uint64, price decimal.Decimal) (model.Book, error)
}

// StockAdjuster is satisfied by repository.InventoryRepo.
type StockAdjuster interface {
    Adjust(ctx context.Context, bookID uint64, delta int) (int, error)
}

// BookHandler serves the catalog.  Purge, when set, is called after a
// successful admin write to drop cached browse responses.
type BookHandler struct {
    Books     BookStore
    Inventory StockAdjuster
    Purge     func(ctx context.Context) error
    Log       *zap.Logger
}

func NewBookHandler(books BookStore, inv StockAdjuster, purge func(ctx context.Context) error, log *zap.Logger) *BookHandler {
    return &BookHandler{Books: books, Inventory: inv, Purge: purge, Log: nopIfNil(log)}
}

// List handles GET /v1/books.  Query parameters: q (title substring),
// category, author, page, page_size.
func (h *BookHandler) List(c echo.Context) error {
    page, ps := pageParams(c, 12)
    q := repository.BookQuery{
        Search:   strings.TrimSpace(c.QueryParam("q")),
        Category: strings.TrimSpace(c.QueryParam("category")),
        Author:   strings.TrimSpace(c.QueryParam("author")),
        Page:     page,
        PageSize: ps,
    }
    items, total, err := h.Books.List(c.Request().Context(), q)
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

// Get handles GET /v1/books/:id.
func (h *BookHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    b, err := h.Books.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, b)
}

// UpdatePrice handles PUT /v1/admin/books/:id/price with body
// {"price": "12.50"}.  Order lines already placed keep their price.
func (h *BookHandler) UpdatePrice(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    var body struct {
        Price *decimal.Decimal `json:"price"`
    }
    if err := c.Bind(&body); err != nil || body.Price == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price is required"})
    }
    if body.Price.IsNegative() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
    }
    b, err := h.Books.UpdatePrice(c.Request().Context(), id, body.Price.Round(2))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.purge(c.Request().Context())
    return c.JSON(http.StatusOK, b)
}

// AdjustStock handles POST /v1/admin/books/:id/stock with body
// {"delta": n}.  A negative delta larger than the current stock is
// rejected with the usual insufficient-stock error.
func (h *BookHandler) AdjustStock(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    var body struct {
        Delta int `json:"delta"`
    }
    if err := c.Bind(&body); err != nil || body.Delta == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "delta must be a non-zero integer"})
    }
    stock, err := h.Inventory.Adjust(c.Request().Context(), id, body.Delta)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Log.Info("stock adjusted", zap.Uint64("book_id", id), zap.Int("delta", body.Delta), zap.Int("stock", stock))
    h.purge(c.Request().Context())
    return c.JSON(http.StatusOK, echo.Map{"book_id": id, "stock": stock})
}

func (h *BookHandler) purge(ctx context.Context) {
    if h.Purge == nil {
        return
    }
    if err := h.Purge(ctx); err != nil {
        h.Log.Warn("purge catalog cache", zap.Error(err))
    }
}
