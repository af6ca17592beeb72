// Package queue_publisher publishes domain events to RabbitMQ.  The chat
// room produces one event per accepted message, so unlike a dial-per-call
// publisher it holds a long-lived connection and channel, re-dialing only
// when a publish fails.  Errors are logged and swallowed: the broker is a
// best-effort collaborator and must never interfere with message fan-out.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/realtime-chat/internal/queue"
)

const publishTimeout = 3 * time.Second

// Publisher is a reconnecting AMQP publisher for the chat.posted queue.
// It satisfies the room's EventSink interface.
type Publisher struct {
    url string

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// New returns a Publisher for the given broker URL.  No connection is made
// until the first publish.
func New(url string) *Publisher {
    return &Publisher{url: url}
}

// MessagePosted publishes an event for one accepted chat line.  Failures
// are logged; the caller never sees them.
func (p *Publisher) MessagePosted(user, body string, at time.Time) {
    ev := q.MessagePostedEvent{
        User:     user,
        Body:     body,
        PostedAt: at.UTC().Format(time.RFC3339),
    }
    if err := p.publish(ev); err != nil {
        log.Printf("rabbitmq: publish chat.posted failed: %v", err)
    }
}

func (p *Publisher) publish(ev q.MessagePostedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
    defer cancel()

    err = p.send(ctx, body)
    if err == nil {
        return nil
    }
    // The channel may be stale after a broker restart; drop it and retry
    // once on a fresh connection.
    p.reset()
    return p.send(ctx, body)
}

// send publishes on the current channel, dialing first if needed.  Caller
// holds p.mu.
func (p *Publisher) send(ctx context.Context, body []byte) error {
    if p.ch == nil {
        if err := p.dial(); err != nil {
            return err
        }
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    return p.ch.PublishWithContext(ctx,
        "",                // default exchange
        q.PostedQueueName, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    )
}

// dial opens the connection and channel and declares the durable queue.
// Caller holds p.mu.
func (p *Publisher) dial() error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return err
    }
    if _, err := ch.QueueDeclare(q.PostedQueueName, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return err
    }
    p.conn = conn
    p.ch = ch
    return nil
}

// reset tears down the current connection so the next publish re-dials.
// Caller holds p.mu.
func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *Publisher) Close() {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
}
