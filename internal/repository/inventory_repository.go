package repository

import (
    "context"
    "database/sql"
    "errors"
)

// InventoryRepo is the inventory ledger: the only code path that writes
// books.stock.  Every decrement is a single conditional UPDATE, so the
// check "enough copies left" and the decrement are one indivisible step
// with respect to concurrent reservations on the same book.  InnoDB
// holds the row lock until the enclosing transaction ends, which makes
// decrements on one book linearizable.
type InventoryRepo struct {
    db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// TryReserveTx decrements the stock of a book by qty if and only if at
// least qty copies are left.  It returns *InsufficientStockError with
// the remaining stock when the book has too few copies and
// *BookNotFoundError when the book does not exist.  The reservation
// becomes visible to others only when the caller commits tx; a rollback
// undoes it.
func (r *InventoryRepo) TryReserveTx(ctx context.Context, tx *sql.Tx, bookID uint64, qty int) error {
    if qty <= 0 {
        return ErrInvalidQuantity
    }
    const q = `UPDATE books SET stock = stock - ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND stock >= ?`
    res, err := tx.ExecContext(ctx, q, qty, bookID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    // Nothing was updated: either the row is gone or the guard failed.
    // Reading within the same transaction reports the value that made
    // the guard fail.
    var title string
    var stock int
    err = tx.QueryRowContext(ctx, `SELECT title, stock FROM books WHERE id = ?`, bookID).Scan(&title, &stock)
    if errors.Is(err, sql.ErrNoRows) {
        return &BookNotFoundError{BookID: bookID}
    }
    if err != nil {
        return err
    }
    return &InsufficientStockError{BookID: bookID, Title: title, Requested: qty, Available: stock}
}

// ReleaseTx returns qty copies of a book to stock.  It is the
// compensating operation for TryReserveTx and is also used for admin
// restocking.
func (r *InventoryRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, bookID uint64, qty int) error {
    if qty <= 0 {
        return ErrInvalidQuantity
    }
    const q = `UPDATE books SET stock = stock + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    res, err := tx.ExecContext(ctx, q, qty, bookID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return &BookNotFoundError{BookID: bookID}
    }
    return nil
}

// Adjust applies an admin stock correction in its own transaction and
// returns the resulting stock.  Negative deltas go through the same
// conditional decrement as checkout, so an admin edit can never drive
// stock below zero or race with a concurrent reservation.
func (r *InventoryRepo) Adjust(ctx context.Context, bookID uint64, delta int) (int, error) {
    if delta == 0 {
        return 0, ErrInvalidQuantity
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if delta < 0 {
        err = r.TryReserveTx(ctx, tx, bookID, -delta)
    } else {
        err = r.ReleaseTx(ctx, tx, bookID, delta)
    }
    if err != nil {
        return 0, err
    }
    var stock int
    if err := tx.QueryRowContext(ctx, `SELECT stock FROM books WHERE id = ?`, bookID).Scan(&stock); err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return stock, nil
}
