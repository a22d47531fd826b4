package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.  Only admin status
// transitions change it after checkout has created the order.
type OrderStatus string

const (
    OrderStatusPending   OrderStatus = "pending"
    OrderStatusConfirmed OrderStatus = "confirmed"
    OrderStatusCompleted OrderStatus = "completed"
    OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
    switch s {
    case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled:
        return true
    }
    return false
}

// PaymentStatus tracks whether the order has been paid for.
type PaymentStatus string

const (
    PaymentStatusPending PaymentStatus = "pending"
    PaymentStatusPaid    PaymentStatus = "paid"
)

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
    return s == PaymentStatusPending || s == PaymentStatusPaid
}

// Order is the header of a purchase created by checkout.  TotalAmount is
// fixed at creation and always equals the sum of its lines; it is never
// recomputed from current book prices.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – customer who placed the order.
//  TotalAmount     – sum of line price * quantity at purchase time.
//  Status          – fulfilment state (pending, confirmed, completed,
//                    cancelled).
//  PaymentStatus   – pending or paid.
//  ShippingAddress – free-form delivery address entered at checkout.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last status change.
type Order struct {
    ID              uint64          // orders.id
    UserID          uint64          // orders.user_id
    TotalAmount     decimal.Decimal // orders.total_amount
    Status          OrderStatus     // orders.status
    PaymentStatus   PaymentStatus   // orders.payment_status
    ShippingAddress string          // orders.shipping_address
    CreatedAt       time.Time       // orders.created_at
    UpdatedAt       time.Time       // orders.updated_at
}

// OrderLine is one purchased book within an order.  Price is the unit
// price captured at checkout and is never updated afterwards, even if
// the book is repriced or deleted.
type OrderLine struct {
    ID        uint64          // order_items.id
    OrderID   uint64          // order_items.order_id
    BookID    uint64          // order_items.book_id (soft reference)
    Quantity  int             // order_items.quantity
    Price     decimal.Decimal // order_items.price
    CreatedAt time.Time       // order_items.created_at
}

// Subtotal returns price * quantity for the line.
func (l OrderLine) Subtotal() decimal.Decimal {
    return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines returns the order total for the given lines.
func SumLines(lines []OrderLine) decimal.Decimal {
    total := decimal.Zero
    for _, l := range lines {
        total = total.Add(l.Subtotal())
    }
    return total
}

// BookSnapshot is the display view of the book referenced by an order
// line.  It reflects the catalog as it is now, not as it was at
// purchase time, so it is nil once the book has been deleted.
type BookSnapshot struct {
    ID           uint64          `json:"id"`
    Title        string          `json:"title"`
    Author       string          `json:"author"`
    Category     string          `json:"category"`
    CurrentPrice decimal.Decimal `json:"current_price"`
}

// OrderLineDetail is an order line as returned to clients.
type OrderLineDetail struct {
    ID       uint64          `json:"id"`
    BookID   uint64          `json:"book_id"`
    Quantity int             `json:"quantity"`
    Price    decimal.Decimal `json:"price"`
    Subtotal decimal.Decimal `json:"subtotal"`
    Book     *BookSnapshot   `json:"book"`
}

// CustomerSummary identifies the customer of an order in admin views.
type CustomerSummary struct {
    ID       uint64 `json:"id"`
    Email    string `json:"email"`
    FullName string `json:"full_name"`
}

// OrderDetail is the fully materialised order aggregate: header plus
// lines with their book snapshot.  It is the response body for checkout,
// order history and admin listings.
type OrderDetail struct {
    ID              uint64            `json:"id"`
    UserID          uint64            `json:"user_id"`
    TotalAmount     decimal.Decimal   `json:"total_amount"`
    Status          OrderStatus       `json:"status"`
    PaymentStatus   PaymentStatus     `json:"payment_status"`
    ShippingAddress string            `json:"shipping_address"`
    CreatedAt       time.Time         `json:"created_at"`
    UpdatedAt       time.Time         `json:"updated_at"`
    Customer        *CustomerSummary  `json:"customer,omitempty"`
    Items           []OrderLineDetail `json:"items"`
}
