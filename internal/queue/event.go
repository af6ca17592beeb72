// Package queue defines message payloads exchanged over the message broker.
package queue

// MessagePostedEvent is published for every chat line accepted by the room,
// after the in-memory fan-out.  It carries enough for downstream consumers
// to log or run analytics without querying the primary database.
type MessagePostedEvent struct {
    User     string `json:"user"`
    Body     string `json:"message"`
    PostedAt string `json:"posted_at"`
}

// PostedQueueName is the durable queue carrying MessagePostedEvent.
const PostedQueueName = "chat.posted"
