package ratemon

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"NetFocus/internal/config"
	"NetFocus/internal/engine/impl/ratemon/statistic"
)

// AlertMessages evaluates the given rules against the current monitor state
// and returns an HTML fragment describing every rule that fired, or the
// empty string when none did. Rules addressed to other monitors are
// ignored.
func (m *TrafficMonitor) AlertMessages(rules []config.AlertRule) string {
	snap, ok := m.Snapshot().(MonitorSnapshot)
	if !ok {
		log.Printf("ERROR: AlertMessages received unexpected snapshot type: %T", m.Snapshot())
		return ""
	}

	var triggeredMessages []string

	for _, rule := range rules {
		if rule.Monitor != m.name {
			continue
		}

		observed, known := observeMetric(snap.Clusters, rule.Metric)
		if !known {
			log.Printf("Warning: unknown metric '%s' in alert rule for monitor '%s'", rule.Metric, m.name)
			continue
		}
		if !exceeds(observed, rule.Operator, rule.Value) {
			continue
		}

		msg := fmt.Sprintf("<h3>Alert: %s</h3>"+
			"<ul>"+
			"<li><b>Monitor:</b> <code>%s</code></li>"+
			"<li><b>Metric:</b> <code>%s</code></li>"+
			"<li><b>Condition:</b> <code>%s %d</code></li>"+
			"<li><b>Observed:</b> <code>%d</code></li>"+
			"</ul>"+
			"<p><b>Hottest Clusters:</b></p>%s",
			m.name, m.name, rule.Metric, rule.Operator, rule.Value, observed,
			hottestClustersTable(snap.Clusters, 10))
		triggeredMessages = append(triggeredMessages, msg)
	}

	return strings.Join(triggeredMessages, "<br><hr><br>")
}

// observeMetric reduces the cluster set to the value an alert rule compares
// against. Known metrics: aggregate (hottest cluster value), clusters
// (count of clusters holding a nonzero value) and depth (deepest refinement
// level reached).
func observeMetric(clusters []statistic.Cluster, metric string) (int64, bool) {
	switch metric {
	case "aggregate":
		var max int32
		for i, c := range clusters {
			if i == 0 || c.Value > max {
				max = c.Value
			}
		}
		return int64(max), true
	case "clusters":
		var n int64
		for _, c := range clusters {
			if c.Value != 0 {
				n++
			}
		}
		return n, true
	case "depth":
		var max int
		for _, c := range clusters {
			if c.Depth > max {
				max = c.Depth
			}
		}
		return int64(max), true
	default:
		return 0, false
	}
}

// exceeds compares an observed value against a rule bound.
func exceeds(observed int64, operator string, bound int64) bool {
	switch operator {
	case "gt":
		return observed > bound
	case "ge":
		return observed >= bound
	default:
		log.Printf("Warning: unknown operator '%s' in alert rule", operator)
		return false
	}
}

func hottestClustersTable(clusters []statistic.Cluster, limit int) string {
	sorted := make([]statistic.Cluster, len(clusters))
	copy(sorted, clusters)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	var rows []string
	for _, c := range sorted {
		rows = append(rows, fmt.Sprintf("<tr><td><code>%s</code></td><td>%d</td></tr>", c.Prefix, c.Value))
	}
	return fmt.Sprintf("<table border=\"1\" cellpadding=\"5\" cellspacing=\"0\">"+
		"<tr><th>Cluster</th><th>Value</th></tr>%s</table>", strings.Join(rows, ""))
}
