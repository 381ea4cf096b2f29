package main

import (
	"NetFocus/internal/config"
	"NetFocus/internal/engine/impl/ratemon"
	"NetFocus/internal/engine/manager"
	"NetFocus/internal/metrics"
	"NetFocus/internal/probe"
	"NetFocus/pkg/pcap"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
)

func main() {
	// 1. Flags and arguments
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	topN := flag.Int("top", 10, "Number of hottest clusters to print per monitor")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: pcap-analyzer [-config path] [-top n] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 3. Initialize modules. The engine runs without a sink here; results
	// come out of the final snapshot instead of NATS.
	classifier, err := probe.NewClassifier(cfg.Probe.Inputs)
	if err != nil {
		log.Fatalf("Failed to build classifier: %v", err)
	}

	managerImpl, err := manager.NewManager(cfg, nil, metrics.New())
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	log.Println("Manager initialized.")

	pcapReader, err := pcap.NewReader(pcapFilePath, classifier)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer pcapReader.Close()
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	// 4. Start the processing pipeline
	managerImpl.Start()
	log.Println("Manager started.")

	// 5. Start reading packets and feeding them to the manager
	pcapReader.ReadPackets(managerImpl.InputChannel())
	log.Println("Finished reading all packets from pcap file.")

	// 6. Graceful shutdown, which also takes the final snapshot
	log.Println("Shutting down manager...")
	managerImpl.Stop()
	log.Println("Shutdown complete.")

	// 7. Report the hottest clusters of each monitor
	for _, mon := range managerImpl.Monitors() {
		snap, ok := mon.Snapshot().(ratemon.MonitorSnapshot)
		if !ok {
			continue
		}
		printHottest(snap, *topN)
	}
}

// printHottest prints the n highest-valued clusters of one snapshot.
func printHottest(snap ratemon.MonitorSnapshot, n int) {
	active := snap.Clusters[:0:0]
	for _, c := range snap.Clusters {
		if c.Value != 0 {
			active = append(active, c)
		}
	}
	fmt.Printf("=== %s (threshold %d) ===\n", snap.Name, snap.Threshold)
	if len(active) == 0 {
		fmt.Println("no active clusters")
		return
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Value > active[j].Value })
	if len(active) > n {
		active = active[:n]
	}
	for i, c := range active {
		fmt.Printf("%2d. %-15s %d\n", i+1, c.Prefix, c.Value)
	}
}
