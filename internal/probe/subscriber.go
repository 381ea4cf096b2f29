package probe

import (
	"log"

	"NetFocus/internal/model"
	"NetFocus/internal/wire"

	"github.com/nats-io/nats.go"
)

// LabeledHandler processes a received labeled packet.
type LabeledHandler func(packet *model.LabeledPacket)

// AnnotatedHandler processes a received annotated packet.
type AnnotatedHandler func(packet *model.AnnotatedPacket)

// Subscriber consumes packet subjects below a common prefix.
type Subscriber struct {
	nc            *nats.Conn
	sub           *nats.Subscription
	subjectPrefix string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(natsURL, subjectPrefix string) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Subscriber{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// SubscribeLabeled subscribes to every input subject under the prefix and
// starts processing messages with the provided handler. Undecodable
// messages are logged and dropped; the port label travels inside the
// payload, not the subject.
func (s *Subscriber) SubscribeLabeled(handler LabeledHandler) error {
	subject := s.subjectPrefix + ".in.*"
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		packet, err := wire.DecodeLabeled(msg.Data)
		if err != nil {
			log.Printf("Error decoding labeled packet: %v", err)
			return
		}
		handler(packet)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return nil
}

// SubscribeAnnotated subscribes to the output subject and starts processing
// messages with the provided handler.
func (s *Subscriber) SubscribeAnnotated(handler AnnotatedHandler) error {
	subject := s.subjectPrefix + ".out"
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		packet, err := wire.DecodeAnnotated(msg.Data)
		if err != nil {
			log.Printf("Error decoding annotated packet: %v", err)
			return
		}
		handler(packet)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
