package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
)

const gradingEventBufferSize = 16

// GradingEventPublisher fans grading events out to watching teachers.
type GradingEventPublisher interface {
	Publish(ctx context.Context, event dto.GradingEvent)
}

// GradingEventService streams submission and grading events per source.
// Events published on one node reach watchers on every node through redis
// pub/sub and NATS.
type GradingEventService interface {
	GradingEventPublisher
	Subscribe(kind models.SourceKind, sourceID uint) (<-chan dto.GradingEvent, func())
	Start(ctx context.Context)
}

type gradingEventService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *gradingEventBroker
	nodeID       string
}

type gradingEnvelope struct {
	Source string           `json:"source"`
	Event  dto.GradingEvent `json:"event"`
	SentAt time.Time        `json:"sent_at"`
}

type gradingEventBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.GradingEvent]struct{}
}

// NewGradingEventService constructs the event fan-out. redisClient and natsConn may be nil.
func NewGradingEventService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) GradingEventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":grading"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grading"
	}

	return &gradingEventService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "grading_event_service").Logger(),
		broker: &gradingEventBroker{
			subscribers: make(map[string]map[chan dto.GradingEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func topicFor(kind string, sourceID uint) string {
	return fmt.Sprintf("%s:%d", kind, sourceID)
}

func (s *gradingEventService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *gradingEventService) Publish(ctx context.Context, event dto.GradingEvent) {
	s.deliver(event)
	if err := s.publishRemote(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish grading event to broker")
	}
}

func (s *gradingEventService) Subscribe(kind models.SourceKind, sourceID uint) (<-chan dto.GradingEvent, func()) {
	channel := make(chan dto.GradingEvent, gradingEventBufferSize)
	topic := topicFor(string(kind), sourceID)

	s.broker.subscribe(topic, channel)
	observability.EventClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(topic, channel)
			observability.EventClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *gradingEventService) deliver(event dto.GradingEvent) {
	observability.GradingEvents().WithLabelValues(event.Type).Inc()
	s.broker.broadcast(topicFor(event.SourceKind, event.SourceID), event)
}

func (s *gradingEventService) publishRemote(ctx context.Context, event dto.GradingEvent) error {
	payload, err := json.Marshal(gradingEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *gradingEventService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("grading redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *gradingEventService) consumeNATS(ctx context.Context) {
	// Every node must see every event, so each node subscribes without a queue group.
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats grading subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain grading nats subscription")
		}
	}()
}

func (s *gradingEventService) handleEnvelope(payload []byte) {
	var envelope gradingEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid grading event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.deliver(envelope.Event)
}

func (b *gradingEventBroker) subscribe(topic string, ch chan dto.GradingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[topic]; !exists {
		b.subscribers[topic] = make(map[chan dto.GradingEvent]struct{})
	}
	b.subscribers[topic][ch] = struct{}{}
}

func (b *gradingEventBroker) unsubscribe(topic string, ch chan dto.GradingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[topic]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, topic)
		}
	}
}

func (b *gradingEventBroker) broadcast(topic string, event dto.GradingEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}
