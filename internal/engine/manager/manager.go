package manager

import (
	"fmt"
	"log"
	"sync"
	"time"

	"NetFocus/internal/alerter"
	"NetFocus/internal/config"
	"NetFocus/internal/engine/impl/ratemon"
	"NetFocus/internal/metrics"
	"NetFocus/internal/model"
	"NetFocus/internal/notification"
)

// Manager orchestrates the traffic monitors, their writers and the packet
// worker pool. Packets flow through every monitor in config order; the last
// monitor's sibling count is what travels downstream to the gate.
type Manager struct {
	monitors []*ratemon.TrafficMonitor
	writers  []model.Writer
	sink     model.Sink
	metrics  *metrics.Metrics
	alerter  *alerter.Alerter

	// Worker pool for concurrent packet processing
	packetChannel chan *model.LabeledPacket
	numWorkers    int
	workerWg      sync.WaitGroup

	// Snapshotting and resetting resources
	resetPeriod   time.Duration // 0 disables the periodic reset
	done          chan struct{}
	snapshotterWg sync.WaitGroup
	resetterWg    sync.WaitGroup
}

// NewManager creates a new Manager from the engine config. The sink receives
// every measured packet and may be nil when nothing runs downstream.
func NewManager(cfg *config.Config, sink model.Sink, mts *metrics.Metrics) (*Manager, error) {
	if len(cfg.Engine.Monitors) == 0 {
		return nil, fmt.Errorf("no monitors configured")
	}

	monitors := make([]*ratemon.TrafficMonitor, 0, len(cfg.Engine.Monitors))
	seen := make(map[string]bool)
	for _, def := range cfg.Engine.Monitors {
		if seen[def.Name] {
			return nil, &ratemon.ConfigError{Monitor: def.Name, Detail: "duplicate monitor name"}
		}
		seen[def.Name] = true

		monitor, err := ratemon.NewTrafficMonitor(def)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, monitor)
		log.Printf("Monitor '%s' created with threshold %d and %d inputs.", def.Name, def.Threshold, len(def.Inputs))
	}

	writers := make([]model.Writer, 0, len(cfg.Engine.Writers))
	for _, writerDef := range cfg.Engine.Writers {
		if !writerDef.Enabled {
			continue
		}

		interval, err := time.ParseDuration(writerDef.Interval)
		if err != nil {
			log.Printf("Warning: invalid interval for writer type '%s': %v, skipping.", writerDef.Type, err)
			continue
		}

		var writer model.Writer
		switch writerDef.Type {
		case "text":
			writer = ratemon.NewTextWriter(writerDef.RootPath, interval)
			log.Printf("Text writer created at %s", writerDef.RootPath)
		case "clickhouse":
			writer, err = ratemon.NewClickHouseWriter(cfg.ClickHouse, interval)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}
			log.Printf("ClickHouse writer created for database %s at %s:%d", cfg.ClickHouse.Database, cfg.ClickHouse.Host, cfg.ClickHouse.Port)
		default:
			log.Printf("Warning: unknown writer type '%s', skipping.", writerDef.Type)
			continue
		}
		writers = append(writers, writer)
	}

	var resetPeriod time.Duration
	if cfg.Engine.ResetPeriod != "" {
		period, err := time.ParseDuration(cfg.Engine.ResetPeriod)
		if err != nil {
			return nil, fmt.Errorf("invalid reset period: %w", err)
		}
		if period <= 0 {
			return nil, fmt.Errorf("reset period must be a positive duration")
		}
		resetPeriod = period
	}

	var alertr *alerter.Alerter
	if cfg.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" { // Simple check to see if email is configured
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		}

		if notifier != nil {
			targets := make([]alerter.Target, len(monitors))
			for i, monitor := range monitors {
				targets[i] = monitor
			}
			var err error
			alertr, err = alerter.NewAlerter(&cfg.Alerter, targets, notifier)
			if err != nil {
				return nil, fmt.Errorf("failed to create alerter: %w", err)
			}
			log.Println("Alerter enabled and initialized.")
		} else {
			log.Println("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
		}
	}

	numWorkers := cfg.Engine.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	return &Manager{
		monitors:      monitors,
		writers:       writers,
		sink:          sink,
		metrics:       mts,
		alerter:       alertr,
		resetPeriod:   resetPeriod,
		done:          make(chan struct{}),
		packetChannel: make(chan *model.LabeledPacket, cfg.Engine.SizeOfPacketChannel),
		numWorkers:    numWorkers,
	}, nil
}

// Start begins the manager's packet workers, snapshotters and, when a reset
// period is configured, the periodic resetter.
func (m *Manager) Start() {
	for _, writer := range m.writers {
		m.snapshotterWg.Add(1)
		go m.runSnapshotter(writer)
		log.Printf("Started snapshotter with interval %s, handling %d monitors.", writer.GetInterval(), len(m.monitors))
	}

	if m.resetPeriod > 0 {
		m.resetterWg.Add(1)
		go m.runResetter()
		log.Printf("Started periodic resetter with period %s", m.resetPeriod)
	}

	if m.alerter != nil {
		go m.alerter.Start()
	}

	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	log.Printf("Manager started with %d workers.", m.numWorkers)
}

// runSnapshotter runs a dedicated snapshot loop for a single writer.
func (m *Manager) runSnapshotter(writer model.Writer) {
	defer m.snapshotterWg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		log.Printf("Invalid interval %s for writer, snapshotter will not run.", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.takeSnapshotForWriter(writer)
		case <-m.done:
			m.takeSnapshotForWriter(writer)
			return
		}
	}
}

// takeSnapshotForWriter snapshots every monitor and hands the results to a
// single writer.
func (m *Manager) takeSnapshotForWriter(writer model.Writer) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")

	var wg sync.WaitGroup
	wg.Add(len(m.monitors))
	for _, monitor := range m.monitors {
		go func(mon *ratemon.TrafficMonitor) {
			defer wg.Done()
			if err := writer.Write(mon.Snapshot(), timestamp, mon.Name()); err != nil {
				log.Printf("Error writing snapshot for monitor %s: %v", mon.Name(), err)
				return
			}
			m.metrics.Snapshots.WithLabelValues(mon.Name()).Inc()
		}(monitor)
	}
	wg.Wait()
}

// runResetter starts a new measurement period for every monitor each reset
// period. The periodic reset always rewinds to a zero baseline; offset
// baselines are an operator action through the management API.
func (m *Manager) runResetter() {
	defer m.resetterWg.Done()
	ticker := time.NewTicker(m.resetPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.resetAllMonitors()
		case <-m.done:
			log.Println("Resetter shutting down.")
			return
		}
	}
}

func (m *Manager) resetAllMonitors() {
	log.Printf("Resetting all monitors for new measurement period at %s", time.Now().Format("2006-01-02_15-04-05"))
	for _, monitor := range m.monitors {
		if err := monitor.Reset(0); err != nil {
			log.Printf("Error resetting monitor %s: %v", monitor.Name(), err)
		}
	}
}

// Stop gracefully shuts down the manager.
func (m *Manager) Stop() {
	log.Println("Manager stopping...")
	// 1. Stop accepting new packets.
	close(m.packetChannel)

	// 2. Wait for all workers to finish processing buffered packets.
	log.Println("Waiting for workers to finish...")
	m.workerWg.Wait()

	// 3. Signal snapshotters and resetter to take final actions and exit.
	close(m.done)
	log.Println("Waiting for snapshotters and resetter to finish...")
	m.snapshotterWg.Wait()
	m.resetterWg.Wait()

	// 4. Stop the alerter if it's running.
	if m.alerter != nil {
		m.alerter.Stop()
	}

	log.Println("Manager stopped.")
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for packet := range m.packetChannel {
		var sibling int32
		failed := false
		for _, monitor := range m.monitors {
			s, split, err := monitor.OnPacket(packet.Input, &packet.Info)
			if err != nil {
				log.Printf("Error processing packet in monitor %s: %v", monitor.Name(), err)
				m.metrics.PacketsFailed.Inc()
				failed = true
				break
			}
			if split {
				m.metrics.Splits.WithLabelValues(monitor.Name()).Inc()
			}
			sibling = s
		}
		if failed {
			continue
		}
		m.metrics.PacketsProcessed.Inc()

		if m.sink != nil {
			annotated := &model.AnnotatedPacket{
				Input:        packet.Input,
				Info:         packet.Info,
				SiblingCount: sibling,
			}
			if err := m.sink.Publish(annotated); err != nil {
				log.Printf("Error publishing annotated packet: %v", err)
			}
		}
	}
}

// InputChannel returns the channel labeled packets are fed into.
func (m *Manager) InputChannel() chan<- *model.LabeledPacket {
	return m.packetChannel
}

// Monitors returns the managed monitors in config order.
func (m *Manager) Monitors() []model.Monitor {
	out := make([]model.Monitor, len(m.monitors))
	for i, monitor := range m.monitors {
		out[i] = monitor
	}
	return out
}
