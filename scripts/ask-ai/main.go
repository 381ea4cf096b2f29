package main

import (
	"NetFocus/internal/ai"
	"NetFocus/internal/config"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

func main() {
	// 1. Parse command-line flags
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	inputFile := flag.String("file", "", "Read the cluster report to analyze from this file.")
	prompt := flag.String("prompt", "", "Text to analyze; overrides -file.")
	timeout := flag.Duration("timeout", 60*time.Second, "How long to wait for the AI backend.")
	flag.Parse()

	// 2. Assemble the input text: -prompt beats -file beats plain arguments
	input := *prompt
	if input == "" && *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			log.Fatalf("Unable to read input file: %v", err)
		}
		input = string(data)
	}
	if input == "" {
		if flag.NArg() > 0 {
			input = strings.Join(flag.Args(), " ")
		} else {
			log.Fatalf("Error: An input is required. Use -file, -prompt or provide it as an argument.")
		}
	}

	// 3. Build the analyzer from config
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	analyzer, err := ai.NewTrafficAnalyzer(&cfg.Alerter.AI)
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}

	// 4. Run the analysis
	log.Println("Sending report to AI... (this may take a while)")
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	output, err := analyzer.AnalyzeTraffic(ctx, input)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	fmt.Println(output)
}
