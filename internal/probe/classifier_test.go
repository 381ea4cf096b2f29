package probe

import (
	"testing"

	"NetFocus/internal/config"
	"NetFocus/internal/model"
)

func flagged(proto uint8, flags uint8) *model.PacketInfo {
	return &model.PacketInfo{
		FiveTuple: model.FiveTuple{Protocol: proto},
		TCPFlags:  flags,
	}
}

func TestClassifierFirstMatchWins(t *testing.T) {
	c, err := NewClassifier([]config.InputRule{
		{Match: "syn"},
		{Match: "tcp"},
		{Match: "any"},
	})
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	if got := c.NumInputs(); got != 3 {
		t.Fatalf("NumInputs = %d, want 3", got)
	}

	cases := []struct {
		label string
		info  *model.PacketInfo
		want  int
	}{
		{"pure syn", flagged(6, model.TCPSyn), 0},
		{"synack goes to tcp", flagged(6, model.TCPSyn|model.TCPAck), 1},
		{"plain tcp", flagged(6, model.TCPAck), 1},
		{"udp falls through", flagged(17, 0), 2},
		{"icmp falls through", flagged(1, 0), 2},
	}
	for _, tc := range cases {
		got, ok := c.Classify(tc.info)
		if !ok {
			t.Errorf("%s: no match", tc.label)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: input = %d, want %d", tc.label, got, tc.want)
		}
	}
}

func TestClassifierNoMatch(t *testing.T) {
	c, err := NewClassifier([]config.InputRule{{Match: "udp"}})
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	if _, ok := c.Classify(flagged(6, model.TCPSyn)); ok {
		t.Error("TCP packet matched a udp-only classifier")
	}
}

func TestClassifierTokens(t *testing.T) {
	cases := []struct {
		token string
		hit   *model.PacketInfo
		miss  *model.PacketInfo
	}{
		{"tcp", flagged(6, 0), flagged(17, 0)},
		{"udp", flagged(17, 0), flagged(6, 0)},
		{"icmp", flagged(1, 0), flagged(6, 0)},
		{"syn", flagged(6, model.TCPSyn), flagged(6, model.TCPSyn|model.TCPAck)},
		{"synack", flagged(6, model.TCPSyn|model.TCPAck), flagged(6, model.TCPSyn)},
		{"ack", flagged(6, model.TCPAck), flagged(6, model.TCPSyn)},
		{"fin", flagged(6, model.TCPFin|model.TCPAck), flagged(6, model.TCPAck)},
		{"rst", flagged(6, model.TCPRst), flagged(6, 0)},
	}
	for _, tc := range cases {
		c, err := NewClassifier([]config.InputRule{{Match: tc.token}})
		if err != nil {
			t.Fatalf("token %q rejected: %v", tc.token, err)
		}
		if _, ok := c.Classify(tc.hit); !ok {
			t.Errorf("token %q did not match its packet", tc.token)
		}
		if _, ok := c.Classify(tc.miss); ok {
			t.Errorf("token %q matched the wrong packet", tc.token)
		}
	}
}

func TestClassifierRejectsUnknownToken(t *testing.T) {
	if _, err := NewClassifier([]config.InputRule{{Match: "quic"}}); err == nil {
		t.Fatal("Expected an error for an unknown match token")
	}
	if _, err := NewClassifier(nil); err == nil {
		t.Fatal("Expected an error for an empty rule list")
	}
}
