package probe

import (
	"fmt"
	"log"

	"NetFocus/internal/model"
	"NetFocus/internal/wire"

	"github.com/nats-io/nats.go"
)

// Publisher publishes packet data to the NATS subject tree below a common
// prefix: labeled packets go to <prefix>.in.<input>, annotated packets to
// <prefix>.out, and gate verdicts to <prefix>.<verdict>.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(natsURL, subjectPrefix string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Publisher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// PublishLabeled serializes a labeled packet and publishes it on the input
// subject matching its port.
func (p *Publisher) PublishLabeled(packet *model.LabeledPacket) error {
	data, err := wire.EncodeLabeled(packet)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("%s.in.%d", p.subjectPrefix, packet.Input), data)
}

// Publish serializes an annotated packet and publishes it on the output
// subject. This is the model.Sink the engine hands measured packets to.
func (p *Publisher) Publish(packet *model.AnnotatedPacket) error {
	data, err := wire.EncodeAnnotated(packet)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subjectPrefix+".out", data)
}

// PublishVerdict republishes an annotated packet on a verdict subject, so
// stages behind the gate see only the traffic class they asked for.
func (p *Publisher) PublishVerdict(packet *model.AnnotatedPacket, verdict string) error {
	data, err := wire.EncodeAnnotated(packet)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subjectPrefix+"."+verdict, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
