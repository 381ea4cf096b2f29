package pcap

import (
	"log"

	"NetFocus/internal/engine/protocol"
	"NetFocus/internal/model"
	"NetFocus/internal/probe"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Reader replays a pcap file as labeled packets.
type Reader struct {
	handle     *pcap.Handle
	classifier *probe.Classifier
}

// NewReader creates a new pcap reader for the given file path. Every packet
// is run through the classifier before it is handed out, so consumers see
// the same labeled stream the live probe would publish.
func NewReader(filePath string, classifier *probe.Classifier) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle, classifier: classifier}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadPackets reads all packets from the pcap file, labels them and sends
// them to the provided channel. The channel is left open for the caller.
func (r *Reader) ReadPackets(out chan<- *model.LabeledPacket) {
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	parseErrors := 0
	for packet := range packetSource.Packets() {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			// Unsupported packet types and corrupt frames are skipped.
			parseErrors++
			continue
		}
		input, ok := r.classifier.Classify(info)
		if !ok {
			continue
		}
		out <- &model.LabeledPacket{Input: input, Info: *info}
	}
	if parseErrors > 0 {
		log.Printf("Skipped %d unparseable packets.", parseErrors)
	}
}
