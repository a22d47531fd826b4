package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// OrderLogFile is the file, relative to the log directory, that order
// events are appended to.
const OrderLogFile = "orders.log"

// OrderConsumer listens to the order.placed queue and appends one
// human-friendly line per event to <LogDir>/orders.log.
type OrderConsumer struct {
    URL    string
    LogDir string
    Log    *zap.Logger
}

// Run connects to RabbitMQ, declares the queue (durable), and consumes
// messages until ctx is cancelled.  Broker failures are retried with
// exponential backoff; a malformed message is rejected without requeue so
// the server keeps operating.
func (c *OrderConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("order consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("order consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *OrderConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("order consumer: set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(OrderPlacedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(OrderPlacedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleOrderPlaced(c.LogDir, d.Body); err != nil {
                c.Log.Error("order consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleOrderPlaced decodes one message body and appends it to the order
// log in dir.
func HandleOrderPlaced(dir string, body []byte) error {
    var ev OrderPlacedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.OrderID == 0 {
        return errors.New("event without order_id")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, OrderLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev OrderPlacedEvent) string {
    items := make([]string, 0, len(ev.Items))
    for _, it := range ev.Items {
        items = append(items, fmt.Sprintf("%dx%d@%s", it.BookID, it.Quantity, it.Price.StringFixed(2)))
    }
    return fmt.Sprintf("[%s] Order placed | order_id=%d | user_id=%d | total=%s | items=[%s] | ship_to=%q | event_id=%s\n",
        ev.PlacedAt, ev.OrderID, ev.UserID, ev.TotalAmount.StringFixed(2), strings.Join(items, ","), ev.ShippingAddress, ev.EventID)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
