package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/bookstore-api/internal/model"
)

func sampleDetail() *model.OrderDetail {
	return &model.OrderDetail{
		ID:              42,
		UserID:          5,
		TotalAmount:     decimal.RequireFromString("251000"),
		ShippingAddress: "12 Long Street, Springfield",
		CreatedAt:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Items: []model.OrderLineDetail{
			{BookID: 1, Quantity: 2, Price: decimal.NewFromInt(86000), Book: &model.BookSnapshot{ID: 1, Title: "Dune"}},
			{BookID: 2, Quantity: 1, Price: decimal.NewFromInt(79000)},
		},
	}
}

func TestNewOrderPlacedEvent(t *testing.T) {
	ev := NewOrderPlacedEvent(sampleDetail())
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, uint64(42), ev.OrderID)
	assert.Equal(t, "2024-05-01T10:00:00Z", ev.PlacedAt)
	require.Len(t, ev.Items, 2)
	assert.Equal(t, "Dune", ev.Items[0].Title)
	assert.Empty(t, ev.Items[1].Title)

	other := NewOrderPlacedEvent(sampleDetail())
	assert.NotEqual(t, ev.EventID, other.EventID)
}

func TestFormatLine(t *testing.T) {
	ev := NewOrderPlacedEvent(sampleDetail())
	ev.EventID = "e1"
	line := formatLine(ev)
	assert.Equal(t,
		`[2024-05-01T10:00:00Z] Order placed | order_id=42 | user_id=5 | total=251000.00 | items=[1x2@86000.00,2x1@79000.00] | ship_to="12 Long Street, Springfield" | event_id=e1`+"\n",
		line)
}

func TestHandleOrderPlacedAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body, err := json.Marshal(NewOrderPlacedEvent(sampleDetail()))
	require.NoError(t, err)

	require.NoError(t, HandleOrderPlaced(dir, body))
	require.NoError(t, HandleOrderPlaced(dir, body))

	data, err := os.ReadFile(filepath.Join(dir, OrderLogFile))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Order placed | order_id=42"))
}

func TestHandleOrderPlacedRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, HandleOrderPlaced(dir, []byte("{not json")))
	assert.Error(t, HandleOrderPlaced(dir, []byte(`{"user_id":5}`)))
}
