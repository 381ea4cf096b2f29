package protocol

import (
	"fmt"
	"time"

	"NetFocus/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParsePacket extracts the monitored metadata from a decoded packet. IPv4
// is required. TCP contributes ports and flags, UDP contributes ports, and
// ICMP passes with zero ports so flood monitors still see echo storms.
func ParsePacket(packet gopacket.Packet) (*model.PacketInfo, error) {
	info := &model.PacketInfo{
		Timestamp: time.Now(),
		Length:    len(packet.Data()),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		info.Timestamp = meta.Timestamp
	}

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ip := l.(*layers.IPv4)
	info.FiveTuple.SrcIP = ip.SrcIP
	info.FiveTuple.DstIP = ip.DstIP
	info.FiveTuple.Protocol = uint8(ip.Protocol)

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		info.FiveTuple.SrcPort = uint16(tcp.SrcPort)
		info.FiveTuple.DstPort = uint16(tcp.DstPort)
		info.TCPFlags = tcpFlags(tcp)
		return info, nil
	}
	if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		info.FiveTuple.SrcPort = uint16(udp.SrcPort)
		info.FiveTuple.DstPort = uint16(udp.DstPort)
		return info, nil
	}
	if packet.Layer(layers.LayerTypeICMPv4) != nil {
		return info, nil
	}

	return nil, fmt.Errorf("unsupported transport protocol %d", info.FiveTuple.Protocol)
}

func tcpFlags(tcp *layers.TCP) uint8 {
	var flags uint8
	if tcp.FIN {
		flags |= model.TCPFin
	}
	if tcp.SYN {
		flags |= model.TCPSyn
	}
	if tcp.RST {
		flags |= model.TCPRst
	}
	if tcp.PSH {
		flags |= model.TCPPsh
	}
	if tcp.ACK {
		flags |= model.TCPAck
	}
	if tcp.URG {
		flags |= model.TCPUrg
	}
	return flags
}
