package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// CartLine is one pending line item in a user's shopping cart.  A user
// has at most one line per book; adding the same book again increases
// the quantity.  Lines are consumed and deleted by a successful
// checkout.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the cart.
//  BookID    – book the user intends to buy.
//  Quantity  – desired number of copies (always positive).
//  CreatedAt – when the line was first added.
type CartLine struct {
    ID        uint64    // cart_items.id
    UserID    uint64    // cart_items.user_id
    BookID    uint64    // cart_items.book_id
    Quantity  int       // cart_items.quantity
    CreatedAt time.Time // cart_items.created_at
}

// CartItemView is a cart line joined with the current catalog data for
// display.  Price and stock here are informational only; checkout
// re-reads both under lock.
type CartItemView struct {
    ID        uint64          `json:"id"`
    BookID    uint64          `json:"book_id"`
    Quantity  int             `json:"quantity"`
    Title     string          `json:"title"`
    Author    string          `json:"author"`
    Price     decimal.Decimal `json:"price"`
    Stock     int             `json:"stock"`
    Subtotal  decimal.Decimal `json:"subtotal"`
    CreatedAt time.Time       `json:"created_at"`
}
