package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Book is a catalog entry.  Price and Stock are the two fields checkout
// depends on: Price is copied into order lines, Stock is the contended
// counter owned by the inventory ledger and never goes below zero.
type Book struct {
    ID        uint64          `json:"id"`
    Title     string          `json:"title"`
    Author    string          `json:"author"`
    Category  string          `json:"category"`
    Price     decimal.Decimal `json:"price"`
    Stock     int             `json:"stock"`
    CreatedAt time.Time       `json:"created_at"`
    UpdatedAt time.Time       `json:"updated_at"`
}
