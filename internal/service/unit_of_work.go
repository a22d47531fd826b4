package service

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/bookstore/bookstore-api/internal/model"
    "github.com/bookstore/bookstore-api/internal/repository"
)

// CartSnapshot reads and consumes the cart lines taking part in a
// checkout.
type CartSnapshot interface {
    LinesForCheckout(ctx context.Context, userID uint64) ([]model.CartLine, error)
    DeleteLines(ctx context.Context, userID uint64, lineIDs []uint64) error
}

// PricingResolver returns the book row a checkout line is priced from.
// Price and stock come from the same consistent read.
type PricingResolver interface {
    ResolveBook(ctx context.Context, bookID uint64) (model.Book, error)
}

// InventoryLedger is the only writer of book stock.
type InventoryLedger interface {
    TryReserve(ctx context.Context, bookID uint64, qty int) error
    Release(ctx context.Context, bookID uint64, qty int) error
}

// OrderWriter persists a new order header and its lines.
type OrderWriter interface {
    CreateOrder(ctx context.Context, o *model.Order) error
    CreateLines(ctx context.Context, lines []model.OrderLine) error
}

// UnitOfWork groups the collaborators of one checkout.  Every write made
// through it becomes visible together when the enclosing InTx returns
// nil, or not at all.
type UnitOfWork interface {
    CartSnapshot
    PricingResolver
    InventoryLedger
    OrderWriter
}

// Transactor runs fn inside a single transaction.  fn returning an error,
// a panic, or a failed commit rolls back everything done through the
// UnitOfWork.
type Transactor interface {
    InTx(ctx context.Context, fn func(UnitOfWork) error) error
}

// OrderReader materialises a committed order for the response.
type OrderReader interface {
    GetByIDForUser(ctx context.Context, orderID, userID uint64) (*model.OrderDetail, error)
}

// SQLTransactor implements Transactor on MySQL using the repositories'
// transaction-scoped methods.
type SQLTransactor struct {
    db        *sql.DB
    books     *repository.BookRepo
    carts     *repository.CartRepo
    inventory *repository.InventoryRepo
    orders    *repository.OrderRepo
}

func NewSQLTransactor(db *sql.DB) *SQLTransactor {
    return &SQLTransactor{
        db:        db,
        books:     repository.NewBookRepo(db),
        carts:     repository.NewCartRepo(db),
        inventory: repository.NewInventoryRepo(db),
        orders:    repository.NewOrderRepo(db),
    }
}

// InTx begins a READ COMMITTED transaction.  Locking reads and the
// conditional stock update always see the latest committed rows, and the
// follow-up read after a failed reservation reports the current stock.
func (t *SQLTransactor) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
    tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&sqlUnit{tx: tx, t: t}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit: %w", err)
    }
    committed = true
    return nil
}

type sqlUnit struct {
    tx *sql.Tx
    t  *SQLTransactor
}

func (u *sqlUnit) LinesForCheckout(ctx context.Context, userID uint64) ([]model.CartLine, error) {
    return u.t.carts.LinesForCheckoutTx(ctx, u.tx, userID)
}

func (u *sqlUnit) DeleteLines(ctx context.Context, userID uint64, lineIDs []uint64) error {
    return u.t.carts.DeleteLinesTx(ctx, u.tx, userID, lineIDs)
}

func (u *sqlUnit) ResolveBook(ctx context.Context, bookID uint64) (model.Book, error) {
    return u.t.books.GetForCheckoutTx(ctx, u.tx, bookID)
}

func (u *sqlUnit) TryReserve(ctx context.Context, bookID uint64, qty int) error {
    return u.t.inventory.TryReserveTx(ctx, u.tx, bookID, qty)
}

func (u *sqlUnit) Release(ctx context.Context, bookID uint64, qty int) error {
    return u.t.inventory.ReleaseTx(ctx, u.tx, bookID, qty)
}

func (u *sqlUnit) CreateOrder(ctx context.Context, o *model.Order) error {
    return u.t.orders.CreateTx(ctx, u.tx, o)
}

func (u *sqlUnit) CreateLines(ctx context.Context, lines []model.OrderLine) error {
    return u.t.orders.CreateLinesBulkTx(ctx, u.tx, lines)
}
