package ratemon

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"NetFocus/internal/model"
)

// TextWriter persists monitor snapshots as plain files: the full cluster
// dump plus a small JSON summary per monitor and snapshot.
type TextWriter struct {
	rootPath string
	interval time.Duration
}

// NewTextWriter creates a new text writer rooted at rootPath.
func NewTextWriter(rootPath string, interval time.Duration) model.Writer {
	return &TextWriter{rootPath: rootPath, interval: interval}
}

func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

type textSummary struct {
	Monitor        string    `json:"monitor"`
	Threshold      int32     `json:"threshold"`
	Since          time.Time `json:"since"`
	TotalClusters  int       `json:"total_clusters"`
	ActiveClusters int       `json:"active_clusters"`
	MaxDepth       int       `json:"max_depth"`
}

// Write stores one snapshot under <root>/<timestamp>/<monitor>/ as
// clusters.txt and summary.json.
func (w *TextWriter) Write(payload interface{}, timestamp, monitor string) error {
	snap, ok := payload.(MonitorSnapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for TextWriter: expected MonitorSnapshot, got %T", payload)
	}

	dir := filepath.Join(w.rootPath, timestamp, monitor)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	clustersPath := filepath.Join(dir, "clusters.txt")
	file, err := os.Create(clustersPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", clustersPath, err)
	}
	defer file.Close()

	summary := textSummary{
		Monitor:        snap.Name,
		Threshold:      snap.Threshold,
		Since:          snap.Since,
		TotalClusters:  len(snap.Clusters),
	}
	for _, c := range snap.Clusters {
		if _, err := fmt.Fprintf(file, "%s %d\n", c.Prefix, c.Value); err != nil {
			return fmt.Errorf("failed to write cluster line: %w", err)
		}
		if c.Value != 0 {
			summary.ActiveClusters++
		}
		if c.Depth > summary.MaxDepth {
			summary.MaxDepth = c.Depth
		}
	}

	summaryPath := filepath.Join(dir, "summary.json")
	summaryFile, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file '%s': %w", summaryPath, err)
	}
	defer summaryFile.Close()

	encoder := json.NewEncoder(summaryFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	log.Printf("Successfully wrote %d clusters to %s\n", len(snap.Clusters), dir)
	return nil
}
