package events

import (
	"context"
	"fmt"
	"sync"

	"sandbox-app-service/logging"

	"github.com/go-zeromq/zmq4"
)

// ZMQPublisher publishes events on a PUB socket from a single sender goroutine
type ZMQPublisher struct {
	// Bind address, e.g. "tcp://*:28400"
	address string

	socket zmq4.Socket
	queue  chan Event

	// Context control
	ctx    context.Context
	cancel context.CancelFunc

	// Wait for the sender to finish
	wg sync.WaitGroup

	closeOnce sync.Once
}

// NewZMQPublisher binds a PUB socket on address and starts the sender
func NewZMQPublisher(address string) (*ZMQPublisher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	socket := zmq4.NewPub(ctx)
	if err := socket.Listen(address); err != nil {
		cancel()
		socket.Close()
		return nil, fmt.Errorf("failed to bind ZMQ publisher on %s: %w", address, err)
	}

	p := &ZMQPublisher{
		address: address,
		socket:  socket,
		queue:   make(chan Event, 256),
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(1)
	go p.send()

	logging.Info("ZMQ event publisher listening", "address", address)
	return p, nil
}

// Addr bound address, useful when binding to port 0
func (p *ZMQPublisher) Addr() string {
	if a := p.socket.Addr(); a != nil {
		return "tcp://" + a.String()
	}
	return p.address
}

// Publish queues e; events are dropped when the queue is full
func (p *ZMQPublisher) Publish(e Event) {
	select {
	case <-p.ctx.Done():
	case p.queue <- e:
	default:
		logging.Warn("event queue full, dropping event", "topic", e.Topic, "app_id", e.AppID)
	}
}

// Close stops the sender and closes the socket
func (p *ZMQPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		err = p.socket.Close()
	})
	return err
}

func (p *ZMQPublisher) send() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-p.queue:
			payload, err := e.Encode()
			if err != nil {
				logging.Error("failed to encode event", "topic", e.Topic, "error", err)
				continue
			}
			if err := p.socket.Send(zmq4.NewMsgFrom([]byte(e.Topic), payload)); err != nil {
				logging.Warn("failed to publish event", "topic", e.Topic, "app_id", e.AppID, "error", err)
			}
		}
	}
}
