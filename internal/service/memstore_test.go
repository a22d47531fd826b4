package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookstore/bookstore-api/internal/model"
	"github.com/bookstore/bookstore-api/internal/repository"
)

var errInjected = errors.New("injected storage failure")

// memStore is an in-memory Transactor.  A transaction holds the store
// mutex for its whole duration, which models the row locks taken by the
// SQL implementation, and restores a copy of the state on rollback.
type memStore struct {
	mu       sync.Mutex
	books    map[uint64]model.Book
	cart     []model.CartLine
	orders   []model.Order
	lines    []model.OrderLine
	nextLine uint64
	nextID   uint64

	failAt   string // "create_order", "create_lines", "delete_lines" or "commit"
	blockOn  uint64 // ResolveBook waits for ctx to end for this book
	txCalls  int
	deleted  [][]uint64
	readFail bool
}

func newMemStore() *memStore {
	return &memStore{books: map[uint64]model.Book{}, nextLine: 1, nextID: 1}
}

func (m *memStore) addBook(id uint64, title string, price int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[id] = model.Book{ID: id, Title: title, Author: "A. Author", Price: decimal.NewFromInt(price), Stock: stock}
}

func (m *memStore) addToCart(userID, bookID uint64, qty int) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextLine
	m.nextLine++
	m.cart = append(m.cart, model.CartLine{ID: id, UserID: userID, BookID: bookID, Quantity: qty, CreatedAt: time.Now()})
	return id
}

func (m *memStore) stock(bookID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[bookID].Stock
}

func (m *memStore) setPrice(bookID uint64, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[bookID]
	b.Price = decimal.NewFromInt(price)
	m.books[bookID] = b
}

func (m *memStore) cartOf(userID uint64) []model.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CartLine
	for _, l := range m.cart {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) lineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

type memSnapshot struct {
	books  map[uint64]model.Book
	cart   []model.CartLine
	orders []model.Order
	lines  []model.OrderLine
	nextID uint64
}

func (m *memStore) snapshot() memSnapshot {
	books := make(map[uint64]model.Book, len(m.books))
	for k, v := range m.books {
		books[k] = v
	}
	return memSnapshot{
		books:  books,
		cart:   append([]model.CartLine(nil), m.cart...),
		orders: append([]model.Order(nil), m.orders...),
		lines:  append([]model.OrderLine(nil), m.lines...),
		nextID: m.nextID,
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.books, m.cart, m.orders, m.lines, m.nextID = s.books, s.cart, s.orders, s.lines, s.nextID
}

func (m *memStore) InTx(ctx context.Context, fn func(UnitOfWork) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	before := m.snapshot()
	defer func() {
		if err != nil {
			m.restore(before)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(memUnit{m}); err != nil {
		return err
	}
	if m.failAt == "commit" {
		return errInjected
	}
	return ctx.Err()
}

// memUnit is used only while the store mutex is held by InTx.
type memUnit struct{ m *memStore }

func (u memUnit) LinesForCheckout(ctx context.Context, userID uint64) ([]model.CartLine, error) {
	var out []model.CartLine
	for _, l := range u.m.cart {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

func (u memUnit) DeleteLines(ctx context.Context, userID uint64, lineIDs []uint64) error {
	if u.m.failAt == "delete_lines" {
		return errInjected
	}
	u.m.deleted = append(u.m.deleted, append([]uint64(nil), lineIDs...))
	drop := make(map[uint64]bool, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = true
	}
	kept := u.m.cart[:0:0]
	for _, l := range u.m.cart {
		if l.UserID == userID && drop[l.ID] {
			continue
		}
		kept = append(kept, l)
	}
	u.m.cart = kept
	return nil
}

func (u memUnit) ResolveBook(ctx context.Context, bookID uint64) (model.Book, error) {
	if bookID == u.m.blockOn {
		<-ctx.Done()
		return model.Book{}, ctx.Err()
	}
	b, ok := u.m.books[bookID]
	if !ok {
		return model.Book{}, &repository.BookNotFoundError{BookID: bookID}
	}
	return b, nil
}

func (u memUnit) TryReserve(ctx context.Context, bookID uint64, qty int) error {
	if qty <= 0 {
		return repository.ErrInvalidQuantity
	}
	b, ok := u.m.books[bookID]
	if !ok {
		return &repository.BookNotFoundError{BookID: bookID}
	}
	if b.Stock < qty {
		return &repository.InsufficientStockError{BookID: bookID, Title: b.Title, Requested: qty, Available: b.Stock}
	}
	b.Stock -= qty
	u.m.books[bookID] = b
	return nil
}

func (u memUnit) Release(ctx context.Context, bookID uint64, qty int) error {
	b, ok := u.m.books[bookID]
	if !ok {
		return &repository.BookNotFoundError{BookID: bookID}
	}
	b.Stock += qty
	u.m.books[bookID] = b
	return nil
}

func (u memUnit) CreateOrder(ctx context.Context, o *model.Order) error {
	if u.m.failAt == "create_order" {
		return errInjected
	}
	o.ID = u.m.nextID
	u.m.nextID++
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	u.m.orders = append(u.m.orders, *o)
	return nil
}

func (u memUnit) CreateLines(ctx context.Context, lines []model.OrderLine) error {
	if u.m.failAt == "create_lines" {
		return errInjected
	}
	u.m.lines = append(u.m.lines, lines...)
	return nil
}

// GetByIDForUser implements OrderReader over committed state.
func (m *memStore) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*model.OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readFail {
		return nil, errInjected
	}
	for _, o := range m.orders {
		if o.ID != orderID || o.UserID != userID {
			continue
		}
		d := &model.OrderDetail{
			ID: o.ID, UserID: o.UserID, TotalAmount: o.TotalAmount, Status: o.Status,
			PaymentStatus: o.PaymentStatus, ShippingAddress: o.ShippingAddress,
			CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
		}
		for _, l := range m.lines {
			if l.OrderID != o.ID {
				continue
			}
			item := model.OrderLineDetail{BookID: l.BookID, Quantity: l.Quantity, Price: l.Price, Subtotal: l.Subtotal()}
			if b, ok := m.books[l.BookID]; ok {
				item.Book = &model.BookSnapshot{ID: b.ID, Title: b.Title, Author: b.Author, CurrentPrice: b.Price}
			}
			d.Items = append(d.Items, item)
		}
		return d, nil
	}
	return nil, repository.ErrOrderNotFound
}
