package model

import (
	"net"
	"time"
)

// TCP flag bits as they appear on the wire, used by the probe-side
// classifier to steer packets onto input ports.
const (
	TCPFin uint8 = 1 << iota
	TCPSyn
	TCPRst
	TCPPsh
	TCPAck
	TCPUrg
)

// FiveTuple represents the 5-tuple of a network packet.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// PacketInfo holds the metadata extracted from a single packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int
	TCPFlags  uint8
}

// LabeledPacket is a packet together with the input port it arrived on.
// The port index selects which monitor binding counts the packet.
type LabeledPacket struct {
	Input int
	Info  PacketInfo
}

// AnnotatedPacket is a packet after it has passed through the monitors,
// carrying the sibling count a downstream admission stage decides on.
type AnnotatedPacket struct {
	Input        int
	Info         PacketInfo
	SiblingCount int32
}
