package alerter

import (
	"strings"
	"sync"
	"testing"

	"NetFocus/internal/config"
)

type stubTarget struct {
	name string
	msg  string

	mu       sync.Mutex
	received []config.AlertRule
}

func (s *stubTarget) Name() string { return s.name }

func (s *stubTarget) AlertMessages(rules []config.AlertRule) string {
	s.mu.Lock()
	s.received = append(s.received, rules...)
	s.mu.Unlock()
	return s.msg
}

type stubNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (s *stubNotifier) Send(subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, body)
	return nil
}

func alerterConfig(rules ...config.AlertRule) *config.AlerterConfig {
	return &config.AlerterConfig{
		Enabled:       true,
		CheckInterval: "1h",
		Rules:         rules,
	}
}

func TestAlerterSendsConsolidatedNotification(t *testing.T) {
	hot := &stubTarget{name: "flood", msg: "<h3>Alert: flood</h3>"}
	quiet := &stubTarget{name: "scan", msg: ""}
	notifier := &stubNotifier{}

	a, err := NewAlerter(alerterConfig(
		config.AlertRule{Monitor: "flood", Metric: "aggregate", Operator: "gt", Value: 10},
		config.AlertRule{Monitor: "scan", Metric: "clusters", Operator: "ge", Value: 100},
	), []Target{hot, quiet}, notifier)
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}

	// Stop without Start runs exactly one final evaluation.
	a.Stop()

	if len(notifier.subjects) != 1 {
		t.Fatalf("notifier received %d sends, want 1", len(notifier.subjects))
	}
	if !strings.Contains(notifier.subjects[0], "1 Triggered") {
		t.Errorf("subject = %q", notifier.subjects[0])
	}
	body := notifier.bodies[0]
	if !strings.Contains(body, "NetFocus Alert Summary") || !strings.Contains(body, hot.msg) {
		t.Errorf("body is missing expected fragments: %s", body)
	}

	// Each target saw only its own rules.
	if len(hot.received) != 1 || hot.received[0].Monitor != "flood" {
		t.Errorf("flood target received rules %+v", hot.received)
	}
	if len(quiet.received) != 1 || quiet.received[0].Monitor != "scan" {
		t.Errorf("scan target received rules %+v", quiet.received)
	}
}

func TestAlerterStaysQuietWithoutMatches(t *testing.T) {
	target := &stubTarget{name: "flood", msg: "<h3>Alert</h3>"}
	notifier := &stubNotifier{}

	a, err := NewAlerter(alerterConfig(
		config.AlertRule{Monitor: "unrelated", Metric: "aggregate", Operator: "gt", Value: 1},
	), []Target{target}, notifier)
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}
	a.Stop()

	if len(notifier.subjects) != 0 {
		t.Errorf("notifier received %d sends, want 0", len(notifier.subjects))
	}
	if len(target.received) != 0 {
		t.Errorf("target evaluated %d rules, want 0", len(target.received))
	}
}

func TestNewAlerterRejectsBadInterval(t *testing.T) {
	cfg := &config.AlerterConfig{CheckInterval: "soon"}
	if _, err := NewAlerter(cfg, nil, &stubNotifier{}); err == nil {
		t.Fatal("Expected an error for an unparsable check interval")
	}
}
