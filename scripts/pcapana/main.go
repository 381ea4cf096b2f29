package main

import (
	"NetFocus/internal/engine/protocol"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

func main() {
	n := flag.Int("n", 5, "Number of packets to print")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go [-n count] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	handle, err := pcap.OpenOffline(pcapFilePath)
	if err != nil {
		log.Fatal(err)
	}
	defer handle.Close()

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	i := 0
	for packet := range packetSource.Packets() {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			fmt.Println("Parse error:", err)
			continue
		}
		i++
		fmt.Printf("[%s] %s:%d -> %s:%d proto=%d len=%d\n",
			info.Timestamp.Format("15:04:05.000"),
			info.FiveTuple.SrcIP, info.FiveTuple.SrcPort,
			info.FiveTuple.DstIP, info.FiveTuple.DstPort,
			info.FiveTuple.Protocol, info.Length,
		)
		if i >= *n {
			break
		}
	}
}
