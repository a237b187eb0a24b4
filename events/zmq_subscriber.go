package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sandbox-app-service/logging"

	"github.com/go-zeromq/zmq4"
)

// Handler handles one received event
type Handler func(e Event) error

// ZMQSubscriber listens to a ZMQPublisher, reconnecting when the connection drops
type ZMQSubscriber struct {
	// Publisher address, e.g. "tcp://127.0.0.1:28400"
	address string

	// Topic prefixes to subscribe to; empty subscribes to everything
	topics []string

	handler Handler

	// Context control
	ctx    context.Context
	cancel context.CancelFunc

	// Wait for the listener to finish
	wg sync.WaitGroup

	// Reconnection interval
	reconnectInterval time.Duration
}

// NewZMQSubscriber creates a subscriber
func NewZMQSubscriber(address string, handler Handler, topics ...string) *ZMQSubscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &ZMQSubscriber{
		address:           address,
		topics:            topics,
		handler:           handler,
		ctx:               ctx,
		cancel:            cancel,
		reconnectInterval: 5 * time.Second,
	}
}

// SetReconnectInterval overrides the 5s default
func (s *ZMQSubscriber) SetReconnectInterval(d time.Duration) {
	s.reconnectInterval = d
}

// Start starts the listener goroutine
func (s *ZMQSubscriber) Start() error {
	if s.handler == nil {
		return fmt.Errorf("no handler set")
	}
	logging.Info("starting ZMQ event subscriber", "address", s.address, "topics", s.topics)

	s.wg.Add(1)
	go s.listen()
	return nil
}

// Stop stops listening
func (s *ZMQSubscriber) Stop() {
	s.cancel()
	s.wg.Wait()
	logging.Info("ZMQ event subscriber stopped")
}

func (s *ZMQSubscriber) listen() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if err := s.session(); err != nil {
			logging.Warn("ZMQ subscriber connection lost", "error", err, "retry_in", s.reconnectInterval)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.reconnectInterval):
		}
	}
}

// session runs one connection until it breaks or the subscriber stops
func (s *ZMQSubscriber) session() error {
	socket := zmq4.NewSub(s.ctx)
	defer socket.Close()

	if err := socket.Dial(s.address); err != nil {
		return fmt.Errorf("dial %s: %w", s.address, err)
	}

	topics := s.topics
	if len(topics) == 0 {
		topics = []string{""}
	}
	for _, topic := range topics {
		if err := socket.SetOption(zmq4.OptionSubscribe, topic); err != nil {
			return fmt.Errorf("subscribe %q: %w", topic, err)
		}
	}

	for {
		msg, err := socket.Recv()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		if len(msg.Frames) < 2 {
			logging.Warn("received message with incorrect format", "frames", len(msg.Frames))
			continue
		}

		e, err := Decode(msg.Frames[1])
		if err != nil {
			logging.Warn("failed to decode event", "topic", string(msg.Frames[0]), "error", err)
			continue
		}

		if err := s.handler(e); err != nil {
			logging.Warn("failed to handle event", "topic", e.Topic, "error", err)
		}
	}
}
