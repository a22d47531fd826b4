package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/bookstore-api/internal/model"
)

var (
	headerCols = []string{"id", "user_id", "total_amount", "status", "payment_status",
		"shipping_address", "created_at", "updated_at", "email", "full_name"}
	lineCols = []string{"order_id", "id", "book_id", "quantity", "price",
		"b.id", "title", "author", "category", "b.price"}
)

func TestCreateTxReadsBackTimestamps(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(5, sqlmock.AnyArg(), "pending", "pending", "12 Long Street, Springfield").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at, updated_at FROM orders WHERE id = ?`)).WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	o := &model.Order{
		UserID:          5,
		TotalAmount:     decimal.RequireFromString("90000"),
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingAddress: "12 Long Street, Springfield",
	}
	require.NoError(t, repo.CreateTx(ctx, tx, o))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(42), o.ID)
	assert.Equal(t, now, o.CreatedAt)
}

func TestCreateLinesBulkTxSingleStatement(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (order_id, book_id, quantity, price) VALUES (?, ?, ?, ?),(?, ?, ?, ?)`)).
		WithArgs(42, 1, 2, sqlmock.AnyArg(), 42, 3, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = repo.CreateLinesBulkTx(ctx, tx, []model.OrderLine{
		{OrderID: 42, BookID: 1, Quantity: 2, Price: decimal.NewFromInt(30000)},
		{OrderID: 42, BookID: 3, Quantity: 1, Price: decimal.NewFromInt(30000)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateLinesBulkTx(ctx, tx, nil))
	require.NoError(t, tx.Commit())
}

func TestGetByIDForUserHidesForeignOrders(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.id = ? AND o.user_id = ?`)).WithArgs(42, 6).
		WillReturnRows(sqlmock.NewRows(headerCols))

	_, err := repo.GetByIDForUser(context.Background(), 42, 6)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetByIDMaterializesLines(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.id = ?`)).WithArgs(42).
		WillReturnRows(sqlmock.NewRows(headerCols).
			AddRow(42, 5, "90000.00", "pending", "pending", "12 Long Street", now, now, "a@b.c", "Ann Reader"))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE oi.order_id IN (?)`)).WithArgs(42).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow(42, 1, 1, 2, "30000.00", 1, "Dune", "Herbert", "scifi", "35000.00").
			AddRow(42, 2, 3, 1, "30000.00", nil, nil, nil, nil, nil))

	d, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, d.Customer)
	assert.Equal(t, "Ann Reader", d.Customer.FullName)
	assert.Equal(t, model.OrderStatusPending, d.Status)
	require.Len(t, d.Items, 2)

	// The order keeps the purchase price even though the catalog changed.
	assert.Equal(t, "30000", d.Items[0].Price.String())
	assert.Equal(t, "35000", d.Items[0].Book.CurrentPrice.String())
	assert.Equal(t, "60000", d.Items[0].Subtotal.String())

	// A deleted book leaves the line without a snapshot.
	assert.Nil(t, d.Items[1].Book)
	assert.Equal(t, uint64(3), d.Items[1].BookID)
}

func TestUpdateStatusRejectsUnknownValues(t *testing.T) {
	db, _ := newMock(t)
	repo := NewOrderRepo(db)

	bad := model.OrderStatus("shipped-ish")
	_, err := repo.UpdateStatus(context.Background(), 1, &bad, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = repo.UpdateStatus(context.Background(), 1, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusWritesOnlyGivenFields(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET payment_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`)).
		WithArgs("paid", 42).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.id = ?`)).WithArgs(42).
		WillReturnRows(sqlmock.NewRows(headerCols).
			AddRow(42, 5, "100.00", "pending", "paid", "12 Long Street", now, now, "a@b.c", "Ann"))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE oi.order_id IN (?)`)).WithArgs(42).
		WillReturnRows(sqlmock.NewRows(lineCols))

	paid := model.PaymentStatusPaid
	d, err := repo.UpdateStatus(context.Background(), 42, nil, &paid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, d.PaymentStatus)
	assert.Empty(t, d.Items)
}
