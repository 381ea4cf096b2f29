package main

import (
	"NetFocus/internal/config"
	"NetFocus/internal/engine/protocol"
	"NetFocus/internal/model"
	"NetFocus/internal/probe"
	"NetFocus/internal/probe/persistent"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print.")
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	pcapFile := flag.String("file", "", "Replay packets from a pcap file instead of capturing live (pub mode only).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(cfg, *pcapFile)
	case "sub":
		runSubscriber(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe contains the logic for capturing packets, labeling them with their
// matching input ports and publishing them to NATS.
func runProbe(cfg *config.Config, pcapFile string) {
	classifier, err := probe.NewClassifier(cfg.Probe.Inputs)
	if err != nil {
		log.Fatalf("Failed to build classifier: %v", err)
	}

	// Initialize NATS Publisher
	pub, err := probe.NewPublisher(cfg.Probe.NATSURL, cfg.Probe.SubjectPrefix)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	var worker *persistent.Worker
	if cfg.Probe.Persistence.Enabled {
		worker, err = persistent.NewWorker(cfg.Probe.Persistence)
		if err != nil {
			log.Fatalf("Failed to start persistence worker: %v", err)
		}
	}

	// Open the capture source: a pcap file for replay, or a device for live
	// capture.
	var handle *pcap.Handle
	if pcapFile != "" {
		log.Printf("Starting nf-probe in PROBE mode, replaying file: %s", pcapFile)
		handle, err = pcap.OpenOffline(pcapFile)
	} else {
		if cfg.Probe.Interface == "" {
			log.Fatalln("Error: probe.interface must be configured for live capture (or use -file).")
		}
		log.Printf("Starting nf-probe in PROBE mode on interface: %s", cfg.Probe.Interface)
		handle, err = pcap.OpenLive(cfg.Probe.Interface, cfg.Probe.SnapshotLen, cfg.Probe.Promiscuous, pcap.BlockForever)
	}
	if err != nil {
		log.Fatalf("Error opening capture source: %v", err)
	}
	defer handle.Close()

	log.Println("Capture started successfully. Publishing packets to NATS...")

	if pcapFile != "" {
		// Offline replay ends when the file does.
		pump(handle, classifier, pub, worker)
		if worker != nil {
			worker.Stop()
		}
		return
	}

	// Set up a channel to handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start processing packets in a separate goroutine
	go pump(handle, classifier, pub, worker)

	// Wait for a shutdown signal
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	if worker != nil {
		worker.Stop()
	}
}

// pump drains the capture handle packet by packet until the source ends.
func pump(handle *pcap.Handle, classifier *probe.Classifier, pub *probe.Publisher, worker *persistent.Worker) {
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetsPublished := 0
	for packet := range packetSource.Packets() {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			continue // Skip non-IPv4 packets
		}
		input, ok := classifier.Classify(info)
		if !ok {
			continue // No input rule matched
		}
		labeled := &model.LabeledPacket{Input: input, Info: *info}
		if err := pub.PublishLabeled(labeled); err != nil {
			log.Printf("Failed to publish packet: %v", err)
		}
		if worker != nil {
			worker.Enqueue(&persistent.PacketContainer{RawPacket: packet, Packet: labeled})
		}
		packetsPublished++
		if packetsPublished%1000 == 0 {
			log.Printf("%d packets published...", packetsPublished)
		}
	}
	log.Printf("Capture source drained, %d packets published.", packetsPublished)
}

// runSubscriber contains the logic for subscribing to NATS and printing messages.
func runSubscriber(cfg *config.Config) {
	log.Println("Starting nf-probe in SUBSCRIBER mode...")

	// Create a new subscriber
	sub, err := probe.NewSubscriber(cfg.Probe.NATSURL, cfg.Probe.SubjectPrefix)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	// Define the handler function for received packets
	handler := func(packet *model.LabeledPacket) {
		info := packet.Info
		log.Printf("[in %d] %s:%d -> %s:%d proto=%d len=%d",
			packet.Input,
			info.FiveTuple.SrcIP, info.FiveTuple.SrcPort,
			info.FiveTuple.DstIP, info.FiveTuple.DstPort,
			info.FiveTuple.Protocol, info.Length)
	}

	// Start listening for messages
	if err := sub.SubscribeLabeled(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// Set up a channel to handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for a shutdown signal
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
