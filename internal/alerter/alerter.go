package alerter

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"NetFocus/internal/ai"
	"NetFocus/internal/config"
	"NetFocus/internal/model"

	"github.com/gomarkdown/markdown"
)

// Target is anything the alerter can evaluate rules against. Each target
// renders its own alert fragment so the alerter stays ignorant of monitor
// internals.
type Target interface {
	Name() string
	AlertMessages(rules []config.AlertRule) string
}

// Alerter periodically evaluates monitor state against predefined rules and
// sends a consolidated notification when rules fire.
type Alerter struct {
	targets       []Target
	rules         []config.AlertRule
	notifier      model.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup

	// AI analysis components
	analyzer model.Analyzer
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg *config.AlerterConfig, targets []Target, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}

	a := &Alerter{
		targets:       targets,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
	}

	if cfg.AI.Enabled {
		analyzer, err := ai.NewTrafficAnalyzer(&cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI analyzer: %w", err)
		}
		a.analyzer = analyzer
		log.Println("AI analysis for alerts is enabled.")
	}

	return a, nil
}

// Start begins the periodic evaluation of alert rules.
func (a *Alerter) Start() {
	log.Println("Alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.evaluateAllTargets()
		case <-a.stopChan:
			return
		}
	}
}

// Stop gracefully stops the alerter's evaluation loop, taking one final
// evaluation so a shutdown never swallows a pending alert.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
	a.evaluateAllTargets()
}

// evaluateAllTargets orchestrates the concurrent evaluation of all targets
// against the rules.
func (a *Alerter) evaluateAllTargets() {
	var wg sync.WaitGroup
	resultsChan := make(chan string, len(a.targets))

	for _, target := range a.targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			var relevantRules []config.AlertRule
			for _, rule := range a.rules {
				if rule.Monitor == t.Name() {
					relevantRules = append(relevantRules, rule)
				}
			}

			if len(relevantRules) > 0 {
				if msg := t.AlertMessages(relevantRules); msg != "" {
					resultsChan <- msg
				}
			}
		}(target)
	}

	wg.Wait()
	close(resultsChan)

	var allMessages []string
	for msg := range resultsChan {
		allMessages = append(allMessages, msg)
	}

	if len(allMessages) == 0 {
		return
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(allMessages))

	body := "<h1>NetFocus Alert Summary</h1>" +
		"<p>The following alerts were triggered during the last check:</p><hr>" +
		strings.Join(allMessages, "<hr>")

	aiAnalysis, err := a.getAIAnalysis(strings.Join(allMessages, "\n"))
	if err != nil {
		log.Printf("Failed to get AI analysis: %v", err)
	} else if aiAnalysis != "" {
		// The analyzer answers in markdown; mail clients want HTML.
		html := markdown.ToHTML([]byte(aiAnalysis), nil, nil)
		body += "<hr><h2>AI-Powered Analysis</h2>" + string(html)
	}

	if a.notifier != nil {
		subject := fmt.Sprintf("NetFocus Alert Summary (%d Triggered)", len(allMessages))
		if err := a.notifier.Send(subject, body); err != nil {
			log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
		} else {
			log.Printf("INFO: Consolidated alert notification sent successfully.")
		}
	}
}

// getAIAnalysis asks the analyzer for an assessment of the alert summary.
func (a *Alerter) getAIAnalysis(alertContent string) (string, error) {
	if a.analyzer == nil {
		return "", nil
	}

	log.Println("Requesting AI analysis for alert summary...")
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	return a.analyzer.AnalyzeTraffic(ctx, alertContent)
}
