package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/shopspring/decimal"

    "github.com/bookstore/bookstore-api/internal/model"
)

// OrderRepo persists orders and their lines and materialises them for
// reading.  Orders are created only by checkout (CreateTx +
// CreateLinesBulkTx in the checkout transaction); afterwards only the
// status fields change.  Lines are never updated.  All timestamp fields
// are stored in UTC.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts a new order header within the scope of an existing
// transaction.  It populates the generated ID and the database-assigned
// timestamps on the provided order.  The caller must commit or
// rollback the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
    const q = `INSERT INTO orders (user_id, total_amount, status, payment_status, shipping_address)
               VALUES (?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, o.UserID, o.TotalAmount, o.Status, o.PaymentStatus, o.ShippingAddress)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    // Query back the timestamps assigned by the database
    const sel = `SELECT created_at, updated_at FROM orders WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, o.ID).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// CreateLinesBulkTx inserts multiple order_items rows in a single
// statement.  Each line must carry the order ID and the unit price
// resolved at checkout.  Passing an empty slice has no effect and
// returns nil.
func (r *OrderRepo) CreateLinesBulkTx(ctx context.Context, tx *sql.Tx, lines []model.OrderLine) error {
    if len(lines) == 0 {
        return nil
    }
    query := `INSERT INTO order_items (order_id, book_id, quantity, price) VALUES `
    args := make([]interface{}, 0, len(lines)*4)
    for i, l := range lines {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, l.OrderID, l.BookID, l.Quantity, l.Price)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

const orderHeaderSelect = `SELECT o.id, o.user_id, o.total_amount, o.status, o.payment_status,
                                  o.shipping_address, o.created_at, o.updated_at,
                                  u.email, u.full_name
                           FROM orders o
                           JOIN users u ON u.id = o.user_id`

// GetByIDForUser returns a single order of the given user with its lines.
// An order owned by someone else is reported as ErrOrderNotFound so its
// existence is not revealed.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*model.OrderDetail, error) {
    details, err := r.queryDetails(ctx, false, orderHeaderSelect+` WHERE o.id = ? AND o.user_id = ?`, orderID, userID)
    if err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return nil, ErrOrderNotFound
    }
    return &details[0], nil
}

// GetByID returns any order with its lines and customer summary.  It is
// used by admin views.
func (r *OrderRepo) GetByID(ctx context.Context, orderID uint64) (*model.OrderDetail, error) {
    details, err := r.queryDetails(ctx, true, orderHeaderSelect+` WHERE o.id = ?`, orderID)
    if err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return nil, ErrOrderNotFound
    }
    return &details[0], nil
}

// ListByUser returns the order history of a user, newest first.  When
// the user has no orders an empty slice is returned.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.OrderDetail, error) {
    return r.queryDetails(ctx, false, orderHeaderSelect+` WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC`, userID)
}

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
    Status   model.OrderStatus // empty means any status
    Page     int
    PageSize int
}

// ListAll returns one page of all orders, newest first, together with
// the total number of matching orders.
func (r *OrderRepo) ListAll(ctx context.Context, f OrderFilter) ([]model.OrderDetail, int64, error) {
    if f.Page < 1 {
        f.Page = 1
    }
    if f.Page > MaxPage {
        f.Page = MaxPage
    }
    if f.PageSize < 1 || f.PageSize > 100 {
        f.PageSize = 20
    }
    cond := "1=1"
    args := []any{}
    if f.Status != "" {
        cond = "o.status = ?"
        args = append(args, f.Status)
    }
    var total int64
    if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o WHERE `+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }
    q := orderHeaderSelect + ` WHERE ` + cond + ` ORDER BY o.created_at DESC, o.id DESC LIMIT ? OFFSET ?`
    args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
    details, err := r.queryDetails(ctx, true, q, args...)
    if err != nil {
        return nil, 0, err
    }
    return details, total, nil
}

// UpdateStatus changes the status and/or payment status of an order.  A
// nil argument leaves that field unchanged.  Lines and totals are never
// touched.  It returns ErrInvalidStatus for unknown values and
// ErrOrderNotFound when the order does not exist.
func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID uint64, status *model.OrderStatus, payment *model.PaymentStatus) (*model.OrderDetail, error) {
    sets := []string{}
    args := []any{}
    if status != nil {
        if !status.Valid() {
            return nil, ErrInvalidStatus
        }
        sets = append(sets, "status = ?")
        args = append(args, *status)
    }
    if payment != nil {
        if !payment.Valid() {
            return nil, ErrInvalidStatus
        }
        sets = append(sets, "payment_status = ?")
        args = append(args, *payment)
    }
    if len(sets) == 0 {
        return nil, ErrInvalidStatus
    }
    sets = append(sets, "updated_at = UTC_TIMESTAMP()")
    args = append(args, orderID)
    if _, err := r.db.ExecContext(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
        return nil, err
    }
    return r.GetByID(ctx, orderID)
}

// queryDetails runs a header query built on orderHeaderSelect and then
// populates the lines of all returned orders with a single query.
func (r *OrderRepo) queryDetails(ctx context.Context, withCustomer bool, q string, args ...any) ([]model.OrderDetail, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]model.OrderDetail, 0)
    // Keep track of index by order ID for quick lookup
    index := make(map[uint64]int)
    for rows.Next() {
        var d model.OrderDetail
        var email, fullName string
        if err := rows.Scan(
            &d.ID, &d.UserID, &d.TotalAmount, &d.Status, &d.PaymentStatus,
            &d.ShippingAddress, &d.CreatedAt, &d.UpdatedAt,
            &email, &fullName,
        ); err != nil {
            return nil, err
        }
        if withCustomer {
            d.Customer = &model.CustomerSummary{ID: d.UserID, Email: email, FullName: fullName}
        }
        d.Items = []model.OrderLineDetail{}
        index[d.ID] = len(details)
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }
    if err := r.attachLines(ctx, details, index); err != nil {
        return nil, err
    }
    return details, nil
}

func (r *OrderRepo) attachLines(ctx context.Context, details []model.OrderDetail, index map[uint64]int) error {
    ids := make([]interface{}, 0, len(details))
    placeholders := make([]string, 0, len(details))
    for _, d := range details {
        ids = append(ids, d.ID)
        placeholders = append(placeholders, "?")
    }
    // LEFT JOIN: the book may have been deleted since the purchase.
    lineQuery := `SELECT oi.order_id, oi.id, oi.book_id, oi.quantity, oi.price,
                         b.id, b.title, b.author, b.category, b.price
                  FROM order_items oi
                  LEFT JOIN books b ON b.id = oi.book_id
                  WHERE oi.order_id IN (` + strings.Join(placeholders, ",") + `)
                  ORDER BY oi.order_id, oi.id`
    lrows, err := r.db.QueryContext(ctx, lineQuery, ids...)
    if err != nil {
        return err
    }
    defer lrows.Close()
    for lrows.Next() {
        var orderID uint64
        var l model.OrderLineDetail
        var bookID sql.NullInt64
        var title, author, category sql.NullString
        var current decimal.NullDecimal
        if err := lrows.Scan(&orderID, &l.ID, &l.BookID, &l.Quantity, &l.Price,
            &bookID, &title, &author, &category, &current); err != nil {
            return err
        }
        idx, ok := index[orderID]
        if !ok {
            continue
        }
        l.Subtotal = model.OrderLine{Price: l.Price, Quantity: l.Quantity}.Subtotal()
        if bookID.Valid {
            l.Book = &model.BookSnapshot{
                ID:           uint64(bookID.Int64),
                Title:        title.String,
                Author:       author.String,
                Category:     category.String,
                CurrentPrice: current.Decimal,
            }
        }
        details[idx].Items = append(details[idx].Items, l)
    }
    return lrows.Err()
}
