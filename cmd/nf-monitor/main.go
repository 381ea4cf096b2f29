package main

import (
	"NetFocus/internal/config"
	"NetFocus/internal/engine/manager"
	"NetFocus/internal/metrics"
	"NetFocus/internal/mgmt"
	"NetFocus/internal/model"
	"NetFocus/internal/probe"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting nf-monitor...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	mts := metrics.New()

	// 2. Connect the downstream sink. Annotated packets go back out on NATS
	// for the gate stage.
	sink, err := probe.NewPublisher(cfg.Probe.NATSURL, cfg.Probe.SubjectPrefix)
	if err != nil {
		log.Fatalf("Failed to connect sink to NATS: %v", err)
	}

	// 3. Initialize the engine
	mgr, err := manager.NewManager(cfg, sink, mts)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	mgr.Start()
	log.Println("Manager started.")

	// 4. Feed the engine from the labeled packet subjects
	sub, err := probe.NewSubscriber(cfg.Probe.NATSURL, cfg.Probe.SubjectPrefix)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	input := mgr.InputChannel()
	if err := sub.SubscribeLabeled(func(packet *model.LabeledPacket) {
		input <- packet
	}); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// 5. Start the management API server
	apiHandler := mgmt.NewAPIHandler(mgr.Monitors(), mts)
	server := &http.Server{
		Addr:    cfg.Management.ListenAddr,
		Handler: apiHandler.Router(),
	}
	go func() {
		log.Printf("Management API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// 6. Wait for a shutdown signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Management server forced to shutdown: %v", err)
	}

	// Stop the inflow before the engine so the final snapshot sees every
	// packet that was already on the wire.
	sub.Close()
	mgr.Stop()
	sink.Close()
	log.Println("Shutdown complete.")
}
