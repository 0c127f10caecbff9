package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bobyard/sui-indexer/internal/publisher"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/redis/go-redis/v9"
)

// SupplyStore is the read/write path the worker needs.
type SupplyStore interface {
	TokenCollection(ctx context.Context, tokenID string) (string, error)
	CollectionSupply(ctx context.Context, collectionID string) (int64, error)
	UpdateCollectionSupply(ctx context.Context, collectionID string, supply int64) error
}

// Config configures the worker.
type Config struct {
	RedisClient   redis.UniversalClient
	Store         SupplyStore
	ConsumerGroup string
	Concurrency   int
	RetryDelay    time.Duration
}

// Topics are the token streams that change a collection's supply.
func Topics() []string {
	return []string{
		publisher.TokenRoutingKey(publisher.TokenCreate),
		publisher.TokenRoutingKey(publisher.TokenDelete),
		publisher.TokenRoutingKey(publisher.TokenUnwrapThenDelete),
	}
}

// QueueStats holds statistics for one stream.
type QueueStats struct {
	Stream       string
	StreamLength int64
	Pending      int64
	Consumers    int64
}

// Worker consumes token notifications from Redis Streams and keeps
// collection supply current.
type Worker struct {
	router        *message.Router
	store         SupplyStore
	redisClient   redis.UniversalClient
	consumerGroup string
	retryDelay    time.Duration
}

// New creates a new Worker with Concurrency consumers per topic, all in one
// consumer group.
func New(cfg Config) (*Worker, error) {
	logger := watermill.NewSlogLogger(nil)

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		router:        router,
		store:         cfg.Store,
		redisClient:   cfg.RedisClient,
		consumerGroup: cfg.ConsumerGroup,
		retryDelay:    cfg.RetryDelay,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		sub, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        cfg.RedisClient,
				ConsumerGroup: cfg.ConsumerGroup,
				Consumer:      fmt.Sprintf("%s-%d-%s", cfg.ConsumerGroup, i, watermill.NewShortUUID()),
			},
			logger,
		)
		if err != nil {
			return nil, err
		}

		for _, topic := range Topics() {
			router.AddNoPublisherHandler(
				fmt.Sprintf("supply-%s-%d", topic, i),
				topic,
				sub,
				w.handleToken,
			)
		}
	}

	return w, nil
}

// handleToken recomputes the supply of the token's collection.
func (w *Worker) handleToken(msg *message.Message) error {
	start := time.Now()
	msgUUID := msg.UUID
	routingKey := msg.Metadata.Get("routing_key")

	var tok nftmodels.Token
	if err := json.Unmarshal(msg.Payload, &tok); err != nil || tok.TokenID == "" {
		slog.Warn("worker invalid payload",
			"msg_uuid", msgUUID,
			"routing_key", routingKey,
			"len", len(msg.Payload),
		)
		return nil // ack invalid messages to avoid infinite retry
	}

	ctx := msg.Context()
	supply, collectionID, err := w.recount(ctx, &tok)
	if err != nil {
		slog.Error("worker supply update failed",
			"token_id", tok.TokenID,
			"routing_key", routingKey,
			"msg_uuid", msgUUID,
			"duration_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		if w.retryDelay > 0 {
			time.Sleep(w.retryDelay)
		}
		return err // will be redelivered
	}
	if collectionID == "" {
		slog.Debug("worker token without collection", "token_id", tok.TokenID, "msg_uuid", msgUUID)
		return nil
	}

	slog.Info("worker supply updated",
		"collection_id", collectionID,
		"supply", supply,
		"token_id", tok.TokenID,
		"routing_key", routingKey,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// recount returns the new supply and the collection it was stored for.
// Deletion notices carry only the token id, so the collection is looked up.
func (w *Worker) recount(ctx context.Context, tok *nftmodels.Token) (int64, string, error) {
	collectionID := tok.CollectionID
	if collectionID == "" {
		var err error
		collectionID, err = w.store.TokenCollection(ctx, tok.TokenID)
		if err != nil {
			return 0, "", err
		}
		if collectionID == "" {
			return 0, "", nil
		}
	}

	supply, err := w.store.CollectionSupply(ctx, collectionID)
	if err != nil {
		return 0, collectionID, err
	}
	if err := w.store.UpdateCollectionSupply(ctx, collectionID, supply); err != nil {
		return 0, collectionID, err
	}
	return supply, collectionID, nil
}

// Run starts the worker. It blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Close closes the worker.
func (w *Worker) Close() error {
	return w.router.Close()
}

// QueueStats returns statistics for every consumed stream.
func (w *Worker) QueueStats(ctx context.Context) ([]QueueStats, error) {
	out := make([]QueueStats, 0, len(Topics()))

	for _, topic := range Topics() {
		stats := QueueStats{Stream: topic}

		length, err := w.redisClient.XLen(ctx, topic).Result()
		if err != nil {
			return nil, err
		}
		stats.StreamLength = length

		groups, err := w.redisClient.XInfoGroups(ctx, topic).Result()
		if err == nil {
			for _, g := range groups {
				if g.Name == w.consumerGroup {
					stats.Pending = g.Pending
					stats.Consumers = g.Consumers
					break
				}
			}
		}
		// Stream might not exist yet

		out = append(out, stats)
	}

	return out, nil
}

// LogQueueStats logs current queue statistics.
func (w *Worker) LogQueueStats(ctx context.Context) {
	all, err := w.QueueStats(ctx)
	if err != nil {
		slog.Warn("worker queue stats error", "err", err)
		return
	}

	for _, stats := range all {
		slog.Info("worker queue stats",
			"stream", stats.Stream,
			"stream_length", stats.StreamLength,
			"pending", stats.Pending,
			"consumers", stats.Consumers,
		)
	}
}
