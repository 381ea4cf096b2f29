package main

import (
	"NetFocus/internal/config"
	"NetFocus/internal/metrics"
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

	"github.com/gorilla/mux"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting nf-gate...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	mts := metrics.New()

	// 2. Connect the verdict publisher
	pub, err := probe.NewPublisher(cfg.Gate.NATSURL, cfg.Gate.SubjectPrefix)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// 3. Subscribe to annotated packets and sort them into verdict subjects.
	// A packet whose cluster already carried more than the sibling limit is
	// part of a hot aggregate and gets dropped.
	sub, err := probe.NewSubscriber(cfg.Gate.NATSURL, cfg.Gate.SubjectPrefix)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}

	limit := cfg.Gate.SiblingLimit
	forwardDrops := cfg.Gate.ForwardDrops
	processed := 0
	dropped := 0
	handler := func(packet *model.AnnotatedPacket) {
		if packet.SiblingCount > limit {
			dropped++
			mts.GateDropped.Inc()
			if forwardDrops {
				if err := pub.PublishVerdict(packet, "drop"); err != nil {
					log.Printf("Failed to publish drop verdict: %v", err)
				}
			}
		} else {
			mts.GatePassed.Inc()
			if err := pub.PublishVerdict(packet, "pass"); err != nil {
				log.Printf("Failed to publish pass verdict: %v", err)
			}
		}
		processed++
		if processed%1000 == 0 {
			log.Printf("Gate processed %d packets, dropped %d.", processed, dropped)
		}
	}
	if err := sub.SubscribeAnnotated(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}
	log.Printf("Gate running with sibling limit %d.", limit)

	// 4. Expose the gate counters
	r := mux.NewRouter()
	r.Handle("/metrics", mts.Handler()).Methods("GET")
	server := &http.Server{
		Addr:    cfg.Gate.ListenAddr,
		Handler: r,
	}
	go func() {
		log.Printf("Gate metrics server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Metrics server forced to shutdown: %v", err)
	}

	sub.Close()
	pub.Close()
	log.Printf("Gate stopped after %d packets (%d dropped).", processed, dropped)
}
