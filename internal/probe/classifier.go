package probe

import (
	"fmt"

	"NetFocus/internal/config"
	"NetFocus/internal/model"
)

const (
	protoICMP = 1
	protoTCP  = 6
	protoUDP  = 17
)

type matcherFunc func(info *model.PacketInfo) bool

var matchers = map[string]matcherFunc{
	"any": func(info *model.PacketInfo) bool { return true },
	"tcp": func(info *model.PacketInfo) bool { return info.FiveTuple.Protocol == protoTCP },
	"udp": func(info *model.PacketInfo) bool { return info.FiveTuple.Protocol == protoUDP },
	"icmp": func(info *model.PacketInfo) bool {
		return info.FiveTuple.Protocol == protoICMP
	},
	"syn": func(info *model.PacketInfo) bool {
		return info.FiveTuple.Protocol == protoTCP &&
			info.TCPFlags&model.TCPSyn != 0 && info.TCPFlags&model.TCPAck == 0
	},
	"synack": func(info *model.PacketInfo) bool {
		return info.FiveTuple.Protocol == protoTCP &&
			info.TCPFlags&model.TCPSyn != 0 && info.TCPFlags&model.TCPAck != 0
	},
	"ack": func(info *model.PacketInfo) bool {
		return info.FiveTuple.Protocol == protoTCP && info.TCPFlags&model.TCPAck != 0
	},
	"fin": func(info *model.PacketInfo) bool {
		return info.FiveTuple.Protocol == protoTCP && info.TCPFlags&model.TCPFin != 0
	},
	"rst": func(info *model.PacketInfo) bool {
		return info.FiveTuple.Protocol == protoTCP && info.TCPFlags&model.TCPRst != 0
	},
}

// Classifier labels captured packets with the input port of the first rule
// they match, in config order. Rule order is therefore precedence: placing
// "syn" before "tcp" steers connection attempts onto their own port and
// the remaining TCP traffic onto the next.
type Classifier struct {
	rules []config.InputRule
	funcs []matcherFunc
}

// NewClassifier builds a classifier from the configured input rules. An
// unknown match token is a config mistake and is rejected.
func NewClassifier(rules []config.InputRule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("no input rules configured")
	}
	funcs := make([]matcherFunc, len(rules))
	for i, rule := range rules {
		fn, ok := matchers[rule.Match]
		if !ok {
			return nil, fmt.Errorf("input %d: unknown match token %q", i, rule.Match)
		}
		funcs[i] = fn
	}
	return &Classifier{rules: rules, funcs: funcs}, nil
}

// Classify returns the input port for a packet, or false when no rule
// matches and the packet should not enter the pipeline.
func (c *Classifier) Classify(info *model.PacketInfo) (int, bool) {
	for i, fn := range c.funcs {
		if fn(info) {
			return i, true
		}
	}
	return 0, false
}

// NumInputs returns how many input ports the classifier feeds.
func (c *Classifier) NumInputs() int {
	return len(c.funcs)
}
