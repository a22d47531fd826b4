package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/bookstore/bookstore-api/internal/model"
)

// CartRepo provides data access to the cart_items table.  A cart line is
// a user's pending intent to buy a book; it holds no stock.  Checkout
// consumes the lines through LinesForCheckoutTx and DeleteLinesTx inside
// its own transaction.
type CartRepo struct {
    db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the provided database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// LinesForCheckoutTx returns the user's cart lines ordered by book ID and
// locks them for the rest of the transaction.  A second checkout of the
// same cart therefore waits until this one commits or rolls back, and
// then sees the lines already deleted.
func (r *CartRepo) LinesForCheckoutTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]model.CartLine, error) {
    const q = `SELECT id, user_id, book_id, quantity, created_at
               FROM cart_items
               WHERE user_id = ?
               ORDER BY book_id, id
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var lines []model.CartLine
    for rows.Next() {
        var l model.CartLine
        if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.Quantity, &l.CreatedAt); err != nil {
            return nil, err
        }
        lines = append(lines, l)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return lines, nil
}

// DeleteLinesTx removes exactly the given cart lines of a user within the
// provided transaction.  Lines added after the snapshot was taken are
// left in place.  Passing an empty slice has no effect.
func (r *CartRepo) DeleteLinesTx(ctx context.Context, tx *sql.Tx, userID uint64, lineIDs []uint64) error {
    if len(lineIDs) == 0 {
        return nil
    }
    placeholders := make([]string, 0, len(lineIDs))
    args := make([]interface{}, 0, len(lineIDs)+1)
    args = append(args, userID)
    for _, id := range lineIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `DELETE FROM cart_items WHERE user_id = ? AND id IN (` + strings.Join(placeholders, ",") + `)`
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// ListByUser returns the user's cart joined with current book data,
// oldest line first.
func (r *CartRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CartItemView, error) {
    const q = `SELECT ci.id, ci.book_id, ci.quantity, ci.created_at,
                      b.title, b.author, b.price, b.stock
               FROM cart_items ci
               JOIN books b ON b.id = ci.book_id
               WHERE ci.user_id = ?
               ORDER BY ci.created_at, ci.id`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    items := make([]model.CartItemView, 0)
    for rows.Next() {
        var it model.CartItemView
        if err := rows.Scan(&it.ID, &it.BookID, &it.Quantity, &it.CreatedAt,
            &it.Title, &it.Author, &it.Price, &it.Stock); err != nil {
            return nil, err
        }
        it.Subtotal = model.OrderLine{Price: it.Price, Quantity: it.Quantity}.Subtotal()
        items = append(items, it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return items, nil
}

// Add puts qty copies of a book into the user's cart, accumulating onto
// an existing line for the same book.  The stock comparison here only
// gives early feedback to the shopper; it does not hold any stock.
func (r *CartRepo) Add(ctx context.Context, userID, bookID uint64, qty int) (model.CartLine, error) {
    if qty <= 0 {
        return model.CartLine{}, ErrInvalidQuantity
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.CartLine{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    title, stock, err := bookStock(ctx, tx, bookID)
    if err != nil {
        return model.CartLine{}, err
    }
    var existing int
    err = tx.QueryRowContext(ctx,
        `SELECT quantity FROM cart_items WHERE user_id = ? AND book_id = ? FOR UPDATE`,
        userID, bookID).Scan(&existing)
    if err != nil && !errors.Is(err, sql.ErrNoRows) {
        return model.CartLine{}, err
    }
    if stock < existing+qty {
        return model.CartLine{}, &InsufficientStockError{BookID: bookID, Title: title, Requested: existing + qty, Available: stock}
    }
    const ins = `INSERT INTO cart_items (user_id, book_id, quantity) VALUES (?, ?, ?)
                 ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`
    if _, err := tx.ExecContext(ctx, ins, userID, bookID, qty); err != nil {
        return model.CartLine{}, err
    }
    var line model.CartLine
    err = tx.QueryRowContext(ctx,
        `SELECT id, user_id, book_id, quantity, created_at FROM cart_items WHERE user_id = ? AND book_id = ?`,
        userID, bookID).Scan(&line.ID, &line.UserID, &line.BookID, &line.Quantity, &line.CreatedAt)
    if err != nil {
        return model.CartLine{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.CartLine{}, err
    }
    committed = true
    return line, nil
}

// UpdateQuantity replaces the quantity of one of the user's cart lines.
// It returns ErrCartLineNotFound for unknown lines and ErrForbidden for
// lines owned by someone else.
func (r *CartRepo) UpdateQuantity(ctx context.Context, userID, lineID uint64, qty int) (model.CartLine, error) {
    if qty <= 0 {
        return model.CartLine{}, ErrInvalidQuantity
    }
    line, err := r.ownedLine(ctx, userID, lineID)
    if err != nil {
        return model.CartLine{}, err
    }
    title, stock, err := bookStock(ctx, r.db, line.BookID)
    if err != nil {
        return model.CartLine{}, err
    }
    if stock < qty {
        return model.CartLine{}, &InsufficientStockError{BookID: line.BookID, Title: title, Requested: qty, Available: stock}
    }
    if _, err := r.db.ExecContext(ctx, `UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`, qty, lineID, userID); err != nil {
        return model.CartLine{}, err
    }
    line.Quantity = qty
    return line, nil
}

// Remove deletes one of the user's cart lines.
func (r *CartRepo) Remove(ctx context.Context, userID, lineID uint64) error {
    if _, err := r.ownedLine(ctx, userID, lineID); err != nil {
        return err
    }
    _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, lineID, userID)
    return err
}

func (r *CartRepo) ownedLine(ctx context.Context, userID, lineID uint64) (model.CartLine, error) {
    var l model.CartLine
    err := r.db.QueryRowContext(ctx,
        `SELECT id, user_id, book_id, quantity, created_at FROM cart_items WHERE id = ?`,
        lineID).Scan(&l.ID, &l.UserID, &l.BookID, &l.Quantity, &l.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.CartLine{}, ErrCartLineNotFound
    }
    if err != nil {
        return model.CartLine{}, err
    }
    if l.UserID != userID {
        return model.CartLine{}, ErrForbidden
    }
    return l, nil
}

type queryRower interface {
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func bookStock(ctx context.Context, q queryRower, bookID uint64) (string, int, error) {
    var title string
    var stock int
    err := q.QueryRowContext(ctx, `SELECT title, stock FROM books WHERE id = ?`, bookID).Scan(&title, &stock)
    if errors.Is(err, sql.ErrNoRows) {
        return "", 0, &BookNotFoundError{BookID: bookID}
    }
    return title, stock, err
}
