package service

import (
    "context"
    "errors"
    "sort"
    "strconv"
    "strings"
    "sync"
    "time"
    "unicode/utf8"

    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/access"
    "github.com/bookstore/bookstore-api/internal/metrics"
    "github.com/bookstore/bookstore-api/internal/model"
    "github.com/bookstore/bookstore-api/internal/queue"
    "github.com/bookstore/bookstore-api/internal/repository"
)

// MinAddressLength is the minimum number of characters of a trimmed
// shipping address.
const MinAddressLength = 10

var (
    ErrInvalidAddress     = errors.New("shipping address must be at least 10 characters")
    ErrEmptyCart          = errors.New("cart is empty")
    ErrCheckoutNotAllowed = errors.New("this account cannot place orders")
)

// CheckoutState is a step of the checkout state machine.
type CheckoutState int

const (
    StateStarted CheckoutState = iota
    StateLinesValidated
    StateReserved
    StateOrderPersisted
    StateCartCleared
    StateCommitted
    StateAborted
)

func (s CheckoutState) String() string {
    switch s {
    case StateStarted:
        return "Started"
    case StateLinesValidated:
        return "LinesValidated"
    case StateReserved:
        return "Reserved"
    case StateOrderPersisted:
        return "OrderPersisted"
    case StateCartCleared:
        return "CartCleared"
    case StateCommitted:
        return "Committed"
    case StateAborted:
        return "Aborted"
    }
    return "CheckoutState(" + strconv.Itoa(int(s)) + ")"
}

// CheckoutRequest is the input of a checkout.  Actor is the
// authenticated caller; there is no ambient session.
type CheckoutRequest struct {
    Actor           access.Identity
    ShippingAddress string
}

// EventPublisher announces committed orders.
type EventPublisher interface {
    PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error
}

// CheckoutService converts a user's cart into an order.  It holds no
// per-request state and is safe for concurrent use.
//
// Stock is reserved with conditional decrements inside the same
// transaction that writes the order and deletes the cart lines, so a
// failure at any step (business rule, infrastructure, timeout) rolls
// back the whole attempt.
type CheckoutService struct {
    tx      Transactor
    orders  OrderReader
    policy  access.Policy
    events  EventPublisher
    metrics *metrics.Checkout
    log     *zap.Logger
    timeout time.Duration

    // publications still in flight, see WaitEvents
    pending sync.WaitGroup
}

type CheckoutOption func(*CheckoutService)

// WithEvents publishes order.placed after every committed checkout.  The
// publication runs in the background; Checkout does not wait for it.
func WithEvents(p EventPublisher) CheckoutOption {
    return func(s *CheckoutService) { s.events = p }
}

func WithMetrics(m *metrics.Checkout) CheckoutOption {
    return func(s *CheckoutService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) CheckoutOption {
    return func(s *CheckoutService) { s.log = l }
}

// WithTimeout bounds the transactional part of a checkout.  Zero means
// only the caller's context applies.
func WithTimeout(d time.Duration) CheckoutOption {
    return func(s *CheckoutService) { s.timeout = d }
}

func NewCheckoutService(tx Transactor, orders OrderReader, policy access.Policy, opts ...CheckoutOption) *CheckoutService {
    s := &CheckoutService{tx: tx, orders: orders, policy: policy, log: zap.NewNop()}
    for _, o := range opts {
        o(s)
    }
    return s
}

// checkoutRun tracks one attempt through the state machine.
type checkoutRun struct {
    userID uint64
    state  CheckoutState
    log    *zap.Logger
}

func (r *checkoutRun) advance(s CheckoutState) {
    r.state = s
    r.log.Debug("checkout state", zap.Uint64("user_id", r.userID), zap.Stringer("state", s))
}

// pricedLine is a merged cart line together with the book it resolved to.
type pricedLine struct {
    model.OrderLine
    book model.Book
}

// Checkout runs the state machine for req.  On success the committed
// order is returned.  Business failures are ErrInvalidAddress,
// ErrCheckoutNotAllowed, access.ErrUnauthenticated, ErrEmptyCart and the
// repository's *BookNotFoundError / *InsufficientStockError; anything
// else is an infrastructure failure.  In every failure case nothing was
// written.  Checkout is not idempotent: two calls with the same cart
// contents place two orders.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*model.OrderDetail, error) {
    start := time.Now()
    run := &checkoutRun{userID: req.Actor.UserID, state: StateStarted, log: s.log}
    detail, err := s.run(ctx, req, run)
    s.observe(run, detail, err, time.Since(start))
    return detail, err
}

func (s *CheckoutService) run(ctx context.Context, req CheckoutRequest, run *checkoutRun) (*model.OrderDetail, error) {
    address := strings.TrimSpace(req.ShippingAddress)
    if utf8.RuneCountInString(address) < MinAddressLength {
        return nil, ErrInvalidAddress
    }
    if err := access.Check(s.policy, req.Actor, access.Checkout); err != nil {
        if errors.Is(err, access.ErrNotAllowed) {
            return nil, ErrCheckoutNotAllowed
        }
        return nil, err
    }
    userID := req.Actor.UserID

    txCtx := ctx
    if s.timeout > 0 {
        var cancel context.CancelFunc
        txCtx, cancel = context.WithTimeout(ctx, s.timeout)
        defer cancel()
    }

    var (
        order model.Order
        lines []pricedLine
    )
    err := s.tx.InTx(txCtx, func(uow UnitOfWork) error {
        cart, err := uow.LinesForCheckout(txCtx, userID)
        if err != nil {
            return err
        }
        if len(cart) == 0 {
            return ErrEmptyCart
        }
        merged, lineIDs := mergeCart(cart)

        lines = make([]pricedLine, 0, len(merged))
        for _, m := range merged {
            book, err := uow.ResolveBook(txCtx, m.BookID)
            if err != nil {
                return err
            }
            m.Price = book.Price
            lines = append(lines, pricedLine{OrderLine: m, book: book})
        }
        run.advance(StateLinesValidated)

        for _, l := range lines {
            if err := uow.TryReserve(txCtx, l.BookID, l.Quantity); err != nil {
                return err
            }
        }
        run.advance(StateReserved)

        orderLines := make([]model.OrderLine, len(lines))
        for i, l := range lines {
            orderLines[i] = l.OrderLine
        }
        order = model.Order{
            UserID:          userID,
            TotalAmount:     model.SumLines(orderLines),
            Status:          model.OrderStatusPending,
            PaymentStatus:   model.PaymentStatusPending,
            ShippingAddress: address,
        }
        if err := uow.CreateOrder(txCtx, &order); err != nil {
            return err
        }
        for i := range orderLines {
            orderLines[i].OrderID = order.ID
        }
        if err := uow.CreateLines(txCtx, orderLines); err != nil {
            return err
        }
        run.advance(StateOrderPersisted)

        if err := uow.DeleteLines(txCtx, userID, lineIDs); err != nil {
            return err
        }
        run.advance(StateCartCleared)
        return nil
    })
    if err != nil {
        return nil, err
    }
    run.advance(StateCommitted)

    // The order is committed; nothing below may turn this into a failure.
    detail, err := s.orders.GetByIDForUser(ctx, order.ID, userID)
    if err != nil {
        s.log.Warn("checkout: reading back committed order failed",
            zap.Uint64("order_id", order.ID), zap.Error(err))
        detail = detailFromLines(order, lines)
    }
    s.publish(ctx, detail)
    return detail, nil
}

// mergeCart folds lines for the same book into one and returns them in
// ascending book order together with the IDs of every consumed cart line.
// Reserving in book order means two checkouts over overlapping books
// acquire row locks in the same order and cannot deadlock.
func mergeCart(cart []model.CartLine) ([]model.OrderLine, []uint64) {
    byBook := make(map[uint64]int, len(cart))
    merged := make([]model.OrderLine, 0, len(cart))
    ids := make([]uint64, 0, len(cart))
    for _, c := range cart {
        ids = append(ids, c.ID)
        if i, ok := byBook[c.BookID]; ok {
            merged[i].Quantity += c.Quantity
            continue
        }
        byBook[c.BookID] = len(merged)
        merged = append(merged, model.OrderLine{BookID: c.BookID, Quantity: c.Quantity})
    }
    sort.Slice(merged, func(i, j int) bool { return merged[i].BookID < merged[j].BookID })
    return merged, ids
}

func detailFromLines(o model.Order, lines []pricedLine) *model.OrderDetail {
    d := &model.OrderDetail{
        ID:              o.ID,
        UserID:          o.UserID,
        TotalAmount:     o.TotalAmount,
        Status:          o.Status,
        PaymentStatus:   o.PaymentStatus,
        ShippingAddress: o.ShippingAddress,
        CreatedAt:       o.CreatedAt,
        UpdatedAt:       o.UpdatedAt,
        Items:           make([]model.OrderLineDetail, 0, len(lines)),
    }
    for _, l := range lines {
        d.Items = append(d.Items, model.OrderLineDetail{
            BookID:   l.BookID,
            Quantity: l.Quantity,
            Price:    l.Price,
            Subtotal: l.Subtotal(),
            Book: &model.BookSnapshot{
                ID:           l.book.ID,
                Title:        l.book.Title,
                Author:       l.book.Author,
                Category:     l.book.Category,
                CurrentPrice: l.book.Price,
            },
        })
    }
    return d
}

func (s *CheckoutService) publish(ctx context.Context, d *model.OrderDetail) {
    if s.events == nil {
        return
    }
    ev := queue.NewOrderPlacedEvent(d)
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
    s.pending.Add(1)
    go func() {
        defer s.pending.Done()
        defer cancel()
        if err := s.events.PublishOrderPlaced(pctx, ev); err != nil {
            s.log.Warn("checkout: order.placed not published", zap.Uint64("order_id", ev.OrderID), zap.Error(err))
        }
    }()
}

// WaitEvents blocks until every order.placed publication started so far
// has finished.  The server calls it during shutdown.
func (s *CheckoutService) WaitEvents() {
    s.pending.Wait()
}

// abortReason classifies a checkout error for logs and metrics.
func abortReason(err error) string {
    switch {
    case errors.Is(err, ErrInvalidAddress):
        return "invalid_address"
    case errors.Is(err, ErrCheckoutNotAllowed):
        return "not_allowed"
    case errors.Is(err, access.ErrUnauthenticated):
        return "unauthenticated"
    case errors.Is(err, ErrEmptyCart):
        return "empty_cart"
    case errors.Is(err, repository.ErrBookNotFound):
        return "book_not_found"
    case errors.Is(err, repository.ErrInsufficientStock):
        return "insufficient_stock"
    case errors.Is(err, context.DeadlineExceeded):
        return "timeout"
    case errors.Is(err, context.Canceled):
        return "cancelled"
    }
    return "infrastructure"
}

// IsBusinessFailure reports whether err is an expected, client-correctable
// checkout failure.
func IsBusinessFailure(err error) bool {
    switch abortReason(err) {
    case "infrastructure", "timeout", "cancelled":
        return false
    }
    return true
}

func (s *CheckoutService) observe(run *checkoutRun, d *model.OrderDetail, err error, elapsed time.Duration) {
    if err == nil {
        s.log.Info("checkout committed",
            zap.Uint64("user_id", run.userID),
            zap.Uint64("order_id", d.ID),
            zap.String("total", d.TotalAmount.StringFixed(2)),
            zap.Int("lines", len(d.Items)),
            zap.Duration("elapsed", elapsed))
        if s.metrics != nil {
            s.metrics.Outcomes.WithLabelValues("committed", StateCommitted.String()).Inc()
            s.metrics.DurationSeconds.Observe(elapsed.Seconds())
            s.metrics.OrderValueTotal.Add(d.TotalAmount.InexactFloat64())
        }
        return
    }

    reached := run.state
    run.state = StateAborted
    reason := abortReason(err)
    fields := []zap.Field{
        zap.Uint64("user_id", run.userID),
        zap.Stringer("state", reached),
        zap.String("reason", reason),
        zap.Error(err),
    }
    var se *repository.InsufficientStockError
    if errors.As(err, &se) {
        fields = append(fields, zap.Uint64("book_id", se.BookID), zap.Int("available", se.Available))
    }
    if IsBusinessFailure(err) {
        s.log.Warn("checkout aborted", fields...)
    } else {
        s.log.Error("checkout aborted", fields...)
    }
    if s.metrics != nil {
        s.metrics.Outcomes.WithLabelValues(reason, reached.String()).Inc()
        s.metrics.DurationSeconds.Observe(elapsed.Seconds())
        if se != nil {
            s.metrics.StockConflicts.WithLabelValues(strconv.FormatUint(se.BookID, 10)).Inc()
        }
    }
}
