// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/bookstore/bookstore-api/internal/model"
)

// OrderPlacedQueue is the durable queue order events are published to.
const OrderPlacedQueue = "order.placed"

// OrderPlacedEvent is published after a checkout has committed.  It
// carries enough of the order for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.  EventID is
// unique per publication; consumers may use it to drop redeliveries.
type OrderPlacedEvent struct {
    EventID         string            `json:"event_id"`
    OrderID         uint64            `json:"order_id"`
    UserID          uint64            `json:"user_id"`
    TotalAmount     decimal.Decimal   `json:"total_amount"`
    ShippingAddress string            `json:"shipping_address"`
    Items           []OrderPlacedItem `json:"items"`
    PlacedAt        string            `json:"placed_at"`
}

// OrderPlacedItem is one purchased line of an OrderPlacedEvent.
type OrderPlacedItem struct {
    BookID   uint64          `json:"book_id"`
    Title    string          `json:"title,omitempty"`
    Quantity int             `json:"quantity"`
    Price    decimal.Decimal `json:"price"`
}

// NewOrderPlacedEvent builds the event for a materialised order.
func NewOrderPlacedEvent(d *model.OrderDetail) OrderPlacedEvent {
    items := make([]OrderPlacedItem, 0, len(d.Items))
    for _, l := range d.Items {
        it := OrderPlacedItem{BookID: l.BookID, Quantity: l.Quantity, Price: l.Price}
        if l.Book != nil {
            it.Title = l.Book.Title
        }
        items = append(items, it)
    }
    return OrderPlacedEvent{
        EventID:         uuid.NewString(),
        OrderID:         d.ID,
        UserID:          d.UserID,
        TotalAmount:     d.TotalAmount,
        ShippingAddress: d.ShippingAddress,
        Items:           items,
        PlacedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
    }
}
