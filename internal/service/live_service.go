package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/observability"
)

const (
	liveSendBufferSize = 16
	livePingInterval   = 30 * time.Second
)

// LiveRoom names the websocket room of a grid scope.
func LiveRoom(kind string, batchID *uint) string {
	if batchID == nil {
		return kind + ":all"
	}
	return fmt.Sprintf("%s:%d", kind, *batchID)
}

// LiveConnectionOptions wraps metadata extracted during the HTTP upgrade.
type LiveConnectionOptions struct {
	UserID        uint
	Role          string
	Room          string
	CorrelationID string
}

// LiveGridService tells editors watching a grid that someone saved it.
type LiveGridService interface {
	ServeConnection(conn *websocket.Conn, opts LiveConnectionOptions)
	Broadcast(ctx context.Context, event dto.AttendanceSavedEvent)
	Start(ctx context.Context)
}

type liveGridService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *liveHub
	nodeID      string
	fanout      fanoutTransport
}

type liveHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*liveClient]struct{}
	log   zerolog.Logger
}

type liveClient struct {
	conn    *websocket.Conn
	send    chan dto.AttendanceSavedEvent
	options LiveConnectionOptions
	service *liveGridService
	closed  chan struct{}
	once    sync.Once
}

type liveEvent struct {
	Source string                   `json:"source"`
	Event  dto.AttendanceSavedEvent `json:"event"`
	SentAt time.Time                `json:"sent_at"`
}

// NewLiveGridService creates the live grid hub. Redis and NATS are optional and
// only used to reach watchers connected to other nodes.
func NewLiveGridService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) LiveGridService {
	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":attendance"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".attendance"
	}

	return &liveGridService{
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "live_grid_service").Logger(),
		hub: &liveHub{
			rooms: make(map[string]map[*liveClient]struct{}),
			log:   logger.With().Str("component", "live_grid_hub").Logger(),
		},
		nodeID: uuid.NewString(),
		fanout: pickFanout(redisClient, streamChannel, natsConn, natsSubject),
	}
}

func (s *liveGridService) Start(ctx context.Context) {
	s.logger.Info().Stringer("fanout", s.fanout).Msg("starting event fan-out")
	switch s.fanout {
	case fanoutNATS:
		go s.consumeNATS(ctx)
	case fanoutRedis:
		go s.consumeRedis(ctx)
	}
}

func (s *liveGridService) ServeConnection(conn *websocket.Conn, opts LiveConnectionOptions) {
	client := &liveClient{
		conn:    conn,
		send:    make(chan dto.AttendanceSavedEvent, liveSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.LiveGridClientsActive().Inc()
	defer observability.LiveGridClientsActive().Dec()

	go client.writer()
	client.reader()
}

func (s *liveGridService) Broadcast(ctx context.Context, event dto.AttendanceSavedEvent) {
	s.hub.broadcast(LiveRoom(event.Kind, event.BatchID), event)
	// Unfiltered grids include every batch.
	if event.BatchID != nil {
		s.hub.broadcast(LiveRoom(event.Kind, nil), event)
	}

	if err := s.publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to fan out attendance event")
	}
}

func (s *liveGridService) publish(ctx context.Context, event dto.AttendanceSavedEvent) error {
	payload, err := json.Marshal(liveEvent{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	switch s.fanout {
	case fanoutNATS:
		return s.nats.Publish(s.natsSubject, payload)
	case fanoutRedis:
		return s.redis.Publish(ctx, s.redisStream, payload).Err()
	}
	return nil
}

func (s *liveGridService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("attendance redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *liveGridService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats attendance subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain attendance nats subscription")
		}
	}()
}

func (s *liveGridService) handleEvent(data []byte) {
	var event liveEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid attendance event")
		return
	}
	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(LiveRoom(event.Event.Kind, event.Event.BatchID), event.Event)
	if event.Event.BatchID != nil {
		s.hub.broadcast(LiveRoom(event.Event.Kind, nil), event.Event)
	}
}

func (h *liveHub) register(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.Room
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*liveClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.log.Debug().Str("room", room).Uint("user_id", client.options.UserID).Msg("live grid client connected")
}

func (h *liveHub) unregister(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.Room
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Debug().Str("room", room).Uint("user_id", client.options.UserID).Msg("live grid client disconnected")
}

func (h *liveHub) broadcast(room string, event dto.AttendanceSavedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		if client.options.UserID == event.SavedBy {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("room", room).Uint("user_id", client.options.UserID).Msg("dropping attendance event for slow client")
		}
	}
}

// reader only drains control frames; watchers never send data.
func (c *liveClient) reader() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("live grid read loop ended")
			return
		}
	}
}

func (c *liveClient) writer() {
	defer c.close()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("live grid write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("live grid ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
