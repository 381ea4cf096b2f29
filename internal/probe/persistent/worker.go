package persistent

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"NetFocus/internal/config"
	"NetFocus/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PacketContainer holds a labeled packet together with the raw frame it
// was parsed from, so the pcap format can replay the capture bit-exact.
type PacketContainer struct {
	RawPacket gopacket.Packet
	Packet    *model.LabeledPacket
}

// Worker tees classified packets to disk without slowing down the capture
// path. A single goroutine drains the queue; when the queue is full the
// tee drops, never the publisher.
type Worker struct {
	packetChan chan *PacketContainer
	stopChan   chan struct{}
	flushed    chan struct{}
	wg         sync.WaitGroup
}

// NewWorker creates and starts a new persistence worker.
func NewWorker(cfg config.PersistenceConfig) (*Worker, error) {
	if err := os.MkdirAll(cfg.RootPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create persistence directory: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 10000
	}

	w := &Worker{
		packetChan: make(chan *PacketContainer, queueSize),
		stopChan:   make(chan struct{}),
		flushed:    make(chan struct{}),
	}

	if err := w.start(cfg); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) start(cfg config.PersistenceConfig) error {
	file, err := w.createOutputFile(cfg)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	var workerFunc func(file *os.File)
	switch cfg.Format {
	case "gob":
		workerFunc = w.runGobWorker
	case "text":
		workerFunc = w.runTextWorker
	case "pcap":
		// The capture source does not hand us its link type; Ethernet
		// covers every deployment we have.
		pcapWriter := pcapgo.NewWriter(file)
		if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
			file.Close()
			return fmt.Errorf("failed to write pcap file header: %w", err)
		}
		workerFunc = w.runPcapWorker(pcapWriter)
	default:
		file.Close()
		return fmt.Errorf("unknown persistence format %q", cfg.Format)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		workerFunc(file)
	}()

	go func() {
		<-w.stopChan
		close(w.packetChan)
		w.wg.Wait()
		if err := file.Close(); err != nil {
			log.Printf("PersistentWorker: Error closing file: %v", err)
		}
		log.Println("Persistent worker stopped and file closed.")
		close(w.flushed)
	}()

	log.Printf("Persistent worker started, format: %s, writing to: %s", cfg.Format, file.Name())
	return nil
}

func (w *Worker) createOutputFile(cfg config.PersistenceConfig) (*os.File, error) {
	ext := ".log"
	switch cfg.Format {
	case "gob":
		ext = ".gob"
	case "pcap":
		ext = ".pcap"
	}
	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05"), ext)
	filePath := filepath.Join(cfg.RootPath, fileName)
	return os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0644)
}

func (w *Worker) runGobWorker(file *os.File) {
	encoder := gob.NewEncoder(file)
	for container := range w.packetChan {
		if err := encoder.Encode(container.Packet); err != nil {
			log.Printf("PersistentWorker (gob): Error encoding packet: %v", err)
		}
	}
}

func (w *Worker) runTextWorker(file *os.File) {
	writer := bufio.NewWriter(file)
	for container := range w.packetChan {
		packet := container.Packet
		line := fmt.Sprintf("%s [in %d] %s:%d -> %s:%d, Proto: %d, Len: %d\n",
			packet.Info.Timestamp.Format("2006-01-02 15:04:05.000"),
			packet.Input,
			packet.Info.FiveTuple.SrcIP,
			packet.Info.FiveTuple.SrcPort,
			packet.Info.FiveTuple.DstIP,
			packet.Info.FiveTuple.DstPort,
			packet.Info.FiveTuple.Protocol,
			packet.Info.Length,
		)
		if _, err := writer.WriteString(line); err != nil {
			log.Printf("PersistentWorker (text): Error writing packet: %v", err)
		}
	}
	writer.Flush()
}

func (w *Worker) runPcapWorker(pcapWriter *pcapgo.Writer) func(*os.File) {
	return func(file *os.File) {
		for container := range w.packetChan {
			if container.RawPacket == nil {
				continue
			}
			if err := pcapWriter.WritePacket(container.RawPacket.Metadata().CaptureInfo, container.RawPacket.Data()); err != nil {
				log.Printf("PersistentWorker (pcap): Error writing packet: %v", err)
			}
		}
	}
}

// Stop gracefully shuts down the worker. It returns once every queued
// packet has been written and the output file is closed.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.flushed
}

// Enqueue hands a packet container to the worker. When the queue is full
// the container is dropped so capture latency stays flat.
func (w *Worker) Enqueue(container *PacketContainer) {
	select {
	case w.packetChan <- container:
	default:
		log.Println("PersistentWorker: Channel is full, dropping packet.")
	}
}
