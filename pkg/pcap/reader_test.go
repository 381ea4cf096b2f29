package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NetFocus/internal/config"
	"NetFocus/internal/model"
	"NetFocus/internal/probe"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func ipv4Frame(t *testing.T, transport gopacket.SerializableLayer, proto layers.IPProtocol) []byte {
	t.Helper()

	ethLayer := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ipLayer := &layers.IPv4{
		SrcIP:    net.IP{10, 0, 0, 1},
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
	return buf.Bytes()
}

func arpFrame(t *testing.T) []byte {
	t.Helper()

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
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 0, 0, 2},
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, arpLayer); err != nil {
		t.Fatalf("Failed to serialize layers: %v", err)
	}
	return buf.Bytes()
}

// writeFixture writes a four-frame capture: a TCP SYN, a plain TCP ACK, a
// UDP datagram and an ARP request the parser cannot handle.
func writeFixture(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create fixture file: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("Failed to write pcap header: %v", err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	frames := [][]byte{
		ipv4Frame(t, &layers.TCP{SrcPort: 40000, DstPort: 80, SYN: true, Window: 14600}, layers.IPProtocolTCP),
		ipv4Frame(t, &layers.TCP{SrcPort: 40000, DstPort: 80, ACK: true, Window: 14600}, layers.IPProtocolTCP),
		ipv4Frame(t, &layers.UDP{SrcPort: 5353, DstPort: 53}, layers.IPProtocolUDP),
		arpFrame(t),
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     base.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			t.Fatalf("Failed to write frame %d: %v", i, err)
		}
	}
}

func TestReaderLabelsPackets(t *testing.T) {
	// 1. Write a small capture into a temp directory.
	dir, err := os.MkdirTemp("", "pcap-reader-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "test.pcap")
	writeFixture(t, path)

	// 2. Read it back through a syn-before-any classifier.
	classifier, err := probe.NewClassifier([]config.InputRule{{Match: "syn"}, {Match: "any"}})
	if err != nil {
		t.Fatalf("Failed to build classifier: %v", err)
	}
	reader, err := NewReader(path, classifier)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	out := make(chan *model.LabeledPacket, 16)
	go func() {
		reader.ReadPackets(out)
		close(out)
	}()

	var packets []*model.LabeledPacket
	for packet := range out {
		packets = append(packets, packet)
	}

	// 3. The ARP frame disappears; the SYN lands on input 0, the rest on 1.
	if len(packets) != 3 {
		t.Fatalf("Read %d packets, want 3", len(packets))
	}
	wantInputs := []int{0, 1, 1}
	for i, packet := range packets {
		if packet.Input != wantInputs[i] {
			t.Errorf("packet %d labeled input %d, want %d", i, packet.Input, wantInputs[i])
		}
	}
	if !packets[0].Info.FiveTuple.SrcIP.Equal(net.IP{10, 0, 0, 1}) {
		t.Errorf("SrcIP = %v, want 10.0.0.1", packets[0].Info.FiveTuple.SrcIP)
	}
	if packets[0].Info.Timestamp.IsZero() {
		t.Error("Timestamp should come from the capture, not be zero")
	}
}
