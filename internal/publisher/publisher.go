package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/redis/go-redis/v9"
)

// Exchanges group the streams by entity.
const (
	ExchangeCollection = "collection"
	ExchangeToken      = "token"
)

// TokenChange is the suffix of a token routing key.
type TokenChange string

const (
	TokenCreate           TokenChange = "create"
	TokenUpdate           TokenChange = "update"
	TokenDelete           TokenChange = "delete"
	TokenWrap             TokenChange = "wrap"
	TokenUnwrap           TokenChange = "unwrap"
	TokenUnwrapThenDelete TokenChange = "unwrap_then_delete"
)

// TokenRoutingKey returns "token.<change>", which is also the stream name.
func TokenRoutingKey(change TokenChange) string {
	return ExchangeToken + "." + string(change)
}

// Streams lists every stream the notifier writes to.
func Streams() []string {
	return []string{
		ExchangeCollection,
		TokenRoutingKey(TokenCreate),
		TokenRoutingKey(TokenUpdate),
		TokenRoutingKey(TokenDelete),
		TokenRoutingKey(TokenWrap),
		TokenRoutingKey(TokenUnwrap),
		TokenRoutingKey(TokenUnwrapThenDelete),
	}
}

// Notification is one entity change to fan out.
type Notification struct {
	Exchange   string
	RoutingKey string
	Payload    any
}

// CollectionNotification announces a collection.
func CollectionNotification(c *nftmodels.Collection) Notification {
	return Notification{Exchange: ExchangeCollection, RoutingKey: ExchangeCollection, Payload: c}
}

// TokenNotification announces a token change.
func TokenNotification(change TokenChange, t *nftmodels.Token) Notification {
	return Notification{Exchange: ExchangeToken, RoutingKey: TokenRoutingKey(change), Payload: t}
}

// Notifier publishes entity changes to Redis Streams from a bounded queue,
// independently of the indexing path.
type Notifier struct {
	pub         message.Publisher
	redisClient redis.UniversalClient
	chainID     int64
	queue       chan Notification
	dropped     atomic.Int64
}

// New creates a Notifier publishing through Redis Streams.
func New(redisClient redis.UniversalClient, chainID int64, buffer int) (*Notifier, error) {
	logger := watermill.NewSlogLogger(nil)

	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	n := NewWithPublisher(pub, chainID, buffer)
	n.redisClient = redisClient
	return n, nil
}

// NewWithPublisher creates a Notifier over any watermill publisher.
func NewWithPublisher(pub message.Publisher, chainID int64, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &Notifier{
		pub:     pub,
		chainID: chainID,
		queue:   make(chan Notification, buffer),
	}
}

// ErrQueueFull is returned by Enqueue when the notification was dropped.
var ErrQueueFull = errors.New("notification queue full")

// Enqueue queues a notification without waiting. A full queue drops the
// notification and returns ErrQueueFull.
func (n *Notifier) Enqueue(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case n.queue <- note:
		return nil
	default:
		n.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns the number of notifications discarded on a full queue.
func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}

// Run publishes queued notifications until ctx is done. Publish failures
// are logged and dropped.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case note := <-n.queue:
			_ = n.publish(note)
		}
	}
}

func (n *Notifier) publish(note Notification) error {
	start := time.Now()

	payload, err := json.Marshal(note.Payload)
	if err != nil {
		slog.Error("notification encode failed", "routing_key", note.RoutingKey, "err", err)
		return fmt.Errorf("encode %s: %w", note.RoutingKey, err)
	}

	msgUUID := watermill.NewUUID()
	msg := message.NewMessage(msgUUID, payload)
	msg.Metadata.Set("exchange", note.Exchange)
	msg.Metadata.Set("routing_key", note.RoutingKey)
	msg.Metadata.Set("chain_id", strconv.FormatInt(n.chainID, 10))

	err = n.pub.Publish(note.RoutingKey, msg)
	duration := time.Since(start)

	if err != nil {
		slog.Error("redis publish failed",
			"routing_key", note.RoutingKey,
			"msg_uuid", msgUUID,
			"duration_ms", duration.Milliseconds(),
			"err", err,
		)
		return err
	}

	slog.Debug("redis publish ok",
		"routing_key", note.RoutingKey,
		"msg_uuid", msgUUID,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// Pending returns the number of queued, unpublished notifications.
func (n *Notifier) Pending() int {
	return len(n.queue)
}

// StreamLengths returns the length of every notification stream. It is
// empty when the notifier was not built over a Redis client.
func (n *Notifier) StreamLengths(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	if n.redisClient == nil {
		return out, nil
	}
	for _, stream := range Streams() {
		length, err := n.redisClient.XLen(ctx, stream).Result()
		if err != nil {
			return nil, fmt.Errorf("xlen %s: %w", stream, err)
		}
		out[stream] = length
	}
	return out, nil
}

// Close closes the publisher.
func (n *Notifier) Close() error {
	return n.pub.Close()
}
