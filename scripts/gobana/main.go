package main

import (
	"NetFocus/internal/model"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <gob_file>")
		os.Exit(1)
	}
	gobFile := os.Args[1]

	file, err := os.Open(gobFile)
	if err != nil {
		log.Fatalf("Unable to open file: %v", err)
	}
	defer file.Close()

	// The probe's gob tee writes one LabeledPacket per Encode call, so the
	// file is a plain stream until EOF.
	decoder := gob.NewDecoder(file)

	count := 0
	for {
		var packet model.LabeledPacket
		err := decoder.Decode(&packet)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Failed to decode gob data: %v", err)
		}
		count++
		info := packet.Info
		fmt.Printf("%s [in %d] %s:%d -> %s:%d proto=%d len=%d\n",
			info.Timestamp.Format("2006-01-02 15:04:05.000"),
			packet.Input,
			info.FiveTuple.SrcIP, info.FiveTuple.SrcPort,
			info.FiveTuple.DstIP, info.FiveTuple.DstPort,
			info.FiveTuple.Protocol, info.Length)
	}
	fmt.Printf("Decoded %d packets.\n", count)
}
