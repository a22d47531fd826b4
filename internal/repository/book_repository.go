package repository // repository for catalog reads and checkout-time pricing

import (
    "context"      // context for managing deadlines
    "database/sql" // sql provides DB interfaces
    "errors"

    "github.com/shopspring/decimal"

    "github.com/bookstore/bookstore-api/internal/model"
)

// BookRepo reads the book catalog.  It never writes books.stock; stock
// changes go through InventoryRepo.
type BookRepo struct {
    db *sql.DB
}

// NewBookRepo constructs a BookRepo given a DB handle.
func NewBookRepo(db *sql.DB) *BookRepo {
    return &BookRepo{db: db}
}

const bookColumns = `id, title, author, category, price, stock, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }, b *model.Book) error {
    return row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &b.Stock, &b.CreatedAt, &b.UpdatedAt)
}

// GetForCheckoutTx is the pricing resolver used by checkout.  It reads
// the book row with FOR UPDATE inside the checkout transaction, so the
// price copied into the order line and the stock seen by the ledger come
// from the same locked row.  It returns *BookNotFoundError when the book
// no longer exists.
func (r *BookRepo) GetForCheckoutTx(ctx context.Context, tx *sql.Tx, bookID uint64) (model.Book, error) {
    const q = `SELECT ` + bookColumns + ` FROM books WHERE id = ? FOR UPDATE`
    var b model.Book
    err := scanBook(tx.QueryRowContext(ctx, q, bookID), &b)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Book{}, &BookNotFoundError{BookID: bookID}
    }
    if err != nil {
        return model.Book{}, err
    }
    return b, nil
}

// GetByID returns a book for display.  The stock value may be stale by
// the time the client acts on it.
func (r *BookRepo) GetByID(ctx context.Context, bookID uint64) (model.Book, error) {
    const q = `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
    var b model.Book
    err := scanBook(r.db.QueryRowContext(ctx, q, bookID), &b)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Book{}, &BookNotFoundError{BookID: bookID}
    }
    if err != nil {
        return model.Book{}, err
    }
    return b, nil
}

// UpdatePrice sets a new catalog price.  Existing order lines keep the
// price they were bought at.
func (r *BookRepo) UpdatePrice(ctx context.Context, bookID uint64, price decimal.Decimal) (model.Book, error) {
    const q = `UPDATE books SET price = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    if _, err := r.db.ExecContext(ctx, q, price, bookID); err != nil {
        return model.Book{}, err
    }
    // MySQL reports 0 affected rows for an unchanged value, so existence
    // is decided by the read-back.
    return r.GetByID(ctx, bookID)
}
