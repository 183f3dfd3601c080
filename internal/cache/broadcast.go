package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/pubsub"
)

// EventGenerationBumped is published for every local generation bump.
const EventGenerationBumped = "cache.generation_bumped"

// BroadcastCache relays generation bumps between replicas that each keep
// an in-process cache. A bump applied on one replica is published and
// applied by every peer, so all of them retire the same entries.
type BroadcastCache struct {
	SearchCache
	bus     pubsub.PubSub
	channel string
	origin  string

	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewBroadcastCache subscribes to channel and starts applying remote
// bumps to inner. Close stops the listener and closes bus and inner.
func NewBroadcastCache(inner SearchCache, bus pubsub.PubSub, channel string) (*BroadcastCache, error) {
	ctx, cancel := context.WithCancel(context.Background())

	events, err := bus.Subscribe(ctx, channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe cache invalidations: %w", err)
	}

	b := &BroadcastCache{
		SearchCache: inner,
		bus:         bus,
		channel:     channel,
		origin:      uuid.New().String(),
		cancel:      cancel,
		doneCh:      make(chan struct{}),
	}
	go b.listen(ctx, events)
	return b, nil
}

// Bump bumps the local generation and publishes it to peers.
func (b *BroadcastCache) Bump(ctx context.Context, cat domain.Category) error {
	if err := b.SearchCache.Bump(ctx, cat); err != nil {
		return err
	}

	ev, err := pubsub.NewEvent(EventGenerationBumped, b.origin, string(cat), nil)
	if err != nil {
		return err
	}
	if err := b.bus.Publish(ctx, b.channel, ev); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

func (b *BroadcastCache) listen(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(b.doneCh)
	l := log.L()

	for ev := range events {
		if ev.Type != EventGenerationBumped || ev.Origin == b.origin {
			continue
		}
		cat := domain.Category(ev.Key)
		if !cat.Valid() {
			l.Warn().Str(log.FieldCategory, ev.Key).Msg("ignoring invalidation for unknown category")
			continue
		}
		if err := b.SearchCache.Bump(ctx, cat); err != nil {
			l.Warn().Err(err).Str(log.FieldCategory, ev.Key).Msg("failed to apply remote invalidation")
		}
	}
}

func (b *BroadcastCache) Close() error {
	b.cancel()
	busErr := b.bus.Close()
	<-b.doneCh
	if err := b.SearchCache.Close(); err != nil {
		return err
	}
	return busErr
}
