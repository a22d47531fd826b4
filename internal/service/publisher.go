package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/bookstore/bookstore-api/internal/queue"
)

// OrderPublisher publishes order events to RabbitMQ.  It dials per
// publication; CheckoutService calls it off the request path, so a broker
// outage costs the event but not checkout latency.  Errors are logged and
// returned.
type OrderPublisher struct {
    url string
    log *zap.Logger
}

func NewOrderPublisher(url string, log *zap.Logger) *OrderPublisher {
    return &OrderPublisher{url: url, log: log}
}

// PublishOrderPlaced publishes ev to the order.placed queue.  Messages
// are marked as persistent.
func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error {
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue.OrderPlacedQueue, // name
        true,                   // durable
        false,                  // autoDelete
        false,                  // exclusive
        false,                  // noWait
        nil,                    // args
    ); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                     // default exchange
        queue.OrderPlacedQueue, // routing key = queue name
        false,                  // mandatory
        false,                  // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.Error(err), zap.Uint64("order_id", ev.OrderID))
        return err
    }
    return nil
}
