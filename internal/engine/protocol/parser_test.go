package protocol

import (
	"net"
	"testing"

	"NetFocus/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func serializeFrame(t *testing.T, transport gopacket.SerializableLayer, proto layers.IPProtocol) gopacket.Packet {
	t.Helper()

	ethLayer := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ipLayer := &layers.IPv4{
		SrcIP:    net.IP{10, 1, 2, 3},
		DstIP:    net.IP{172, 16, 0, 1},
		Version:  4,
		TTL:      64,
		Protocol: proto,
	}
	if tcp, ok := transport.(*layers.TCP); ok {
		tcp.SetNetworkLayerForChecksum(ipLayer)
	}
	if udp, ok := transport.(*layers.UDP); ok {
		udp.SetNetworkLayerForChecksum(ipLayer)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, transport, gopacket.Payload([]byte("payload"))); err != nil {
		t.Fatalf("Failed to serialize layers: %v", err)
	}
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

func TestParsePacketTCP(t *testing.T) {
	packet := serializeFrame(t, &layers.TCP{
		SrcPort: 12345,
		DstPort: 80,
		SYN:     true,
		ACK:     true,
		Window:  14600,
	}, layers.IPProtocolTCP)

	info, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}

	if !info.FiveTuple.SrcIP.Equal(net.IP{10, 1, 2, 3}) {
		t.Errorf("SrcIP = %v", info.FiveTuple.SrcIP)
	}
	if info.FiveTuple.SrcPort != 12345 || info.FiveTuple.DstPort != 80 {
		t.Errorf("ports = %d -> %d", info.FiveTuple.SrcPort, info.FiveTuple.DstPort)
	}
	if info.FiveTuple.Protocol != 6 {
		t.Errorf("Protocol = %d, want 6", info.FiveTuple.Protocol)
	}
	if info.TCPFlags != model.TCPSyn|model.TCPAck {
		t.Errorf("TCPFlags = %#x, want SYN|ACK", info.TCPFlags)
	}
	if info.Length == 0 {
		t.Error("Length should not be 0")
	}
}

func TestParsePacketUDP(t *testing.T) {
	packet := serializeFrame(t, &layers.UDP{
		SrcPort: 5353,
		DstPort: 53,
	}, layers.IPProtocolUDP)

	info, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if info.FiveTuple.Protocol != 17 {
		t.Errorf("Protocol = %d, want 17", info.FiveTuple.Protocol)
	}
	if info.FiveTuple.DstPort != 53 {
		t.Errorf("DstPort = %d, want 53", info.FiveTuple.DstPort)
	}
	if info.TCPFlags != 0 {
		t.Errorf("TCPFlags = %#x, want 0", info.TCPFlags)
	}
}

func TestParsePacketICMP(t *testing.T) {
	packet := serializeFrame(t, &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
	}, layers.IPProtocolICMPv4)

	info, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if info.FiveTuple.Protocol != 1 {
		t.Errorf("Protocol = %d, want 1", info.FiveTuple.Protocol)
	}
	if info.FiveTuple.SrcPort != 0 || info.FiveTuple.DstPort != 0 {
		t.Errorf("ICMP ports = %d, %d, want 0, 0", info.FiveTuple.SrcPort, info.FiveTuple.DstPort)
	}
}

func TestParsePacketNonIPv4(t *testing.T) {
	ethLayer := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		EthernetType: layers.EthernetTypeARP,
	}
	arpLayer := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		SourceProtAddress: []byte{10, 1, 2, 3},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 1, 2, 4},
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, arpLayer); err != nil {
		t.Fatalf("Failed to serialize layers: %v", err)
	}
	packet := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)

	if _, err := ParsePacket(packet); err == nil {
		t.Fatal("Expected an error for a non-IPv4 packet")
	}
}
