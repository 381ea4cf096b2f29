package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NetFocus/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// TopClustersRequest selects the hottest recorded clusters of a monitor.
type TopClustersRequest struct {
	Monitor string `json:"monitor"`
	// EndTime bounds the history considered; zero means the full history.
	EndTime *time.Time `json:"end_time,omitempty"`
	// MinDepth keeps only clusters at least this many address bytes deep,
	// which filters the always-present first-level clusters away.
	MinDepth int `json:"min_depth,omitempty"`
	Limit    int `json:"limit,omitempty"`
}

// ClusterSummary is one cluster with its most recent recorded state.
type ClusterSummary struct {
	Prefix      string    `json:"prefix"`
	Depth       uint8     `json:"depth"`
	LatestValue int32     `json:"latest_value"`
	LastSeen    time.Time `json:"last_seen"`
}

// TopClustersResponse lists clusters ordered by their latest value.
type TopClustersResponse struct {
	Monitor  string            `json:"monitor"`
	Clusters []*ClusterSummary `json:"clusters"`
}

// ClusterHistoryRequest retrieves the recorded time series of one cluster.
type ClusterHistoryRequest struct {
	Monitor   string     `json:"monitor"`
	Prefix    string     `json:"prefix"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// HistoryPoint is one recorded sample of a cluster value.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int32     `json:"value"`
}

// ClusterHistoryResponse carries the samples in time order.
type ClusterHistoryResponse struct {
	Monitor string          `json:"monitor"`
	Prefix  string          `json:"prefix"`
	Points  []*HistoryPoint `json:"points"`
}

// Querier defines the interface for querying recorded cluster data.
type Querier interface {
	TopClusters(ctx context.Context, req *TopClustersRequest) (*TopClustersResponse, error)
	ClusterHistory(ctx context.Context, req *ClusterHistoryRequest) (*ClusterHistoryResponse, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// TopClusters reduces every recorded prefix to its latest sample and
// returns the hottest ones.
func (q *clickhouseQuerier) TopClusters(ctx context.Context, req *TopClustersRequest) (*TopClustersResponse, error) {
	if req.Monitor == "" {
		return nil, fmt.Errorf("monitor name is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT Prefix, LatestDepth, LatestValue, LastSeen
		FROM (
			SELECT
				Prefix,
				argMax(Depth, Timestamp) AS LatestDepth,
				argMax(Value, Timestamp) AS LatestValue,
				max(Timestamp) AS LastSeen
			FROM cluster_metrics
	`)

	whereClauses := []string{"Monitor = ?"}
	args := []interface{}{req.Monitor}

	if req.EndTime != nil {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, *req.EndTime)
	}
	if req.MinDepth > 0 {
		whereClauses = append(whereClauses, "Depth >= ?")
		args = append(args, uint8(req.MinDepth))
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString(`
			GROUP BY Prefix
		)
		ORDER BY LatestValue DESC
		LIMIT ?
	`)
	args = append(args, limit)

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	resp := &TopClustersResponse{Monitor: req.Monitor}
	for rows.Next() {
		var summary ClusterSummary
		if err := rows.Scan(&summary.Prefix, &summary.Depth, &summary.LatestValue, &summary.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan cluster result: %w", err)
		}
		resp.Clusters = append(resp.Clusters, &summary)
	}

	return resp, nil
}

// ClusterHistory returns the recorded samples of one cluster in time order.
func (q *clickhouseQuerier) ClusterHistory(ctx context.Context, req *ClusterHistoryRequest) (*ClusterHistoryResponse, error) {
	if req.Monitor == "" || req.Prefix == "" {
		return nil, fmt.Errorf("monitor name and cluster prefix are required")
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT Timestamp, Value
		FROM cluster_metrics
	`)

	whereClauses := []string{"Monitor = ?", "Prefix = ?"}
	args := []interface{}{req.Monitor, req.Prefix}

	if req.StartTime != nil {
		whereClauses = append(whereClauses, "Timestamp >= ?")
		args = append(args, *req.StartTime)
	}
	if req.EndTime != nil {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, *req.EndTime)
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString(" ORDER BY Timestamp")

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	resp := &ClusterHistoryResponse{Monitor: req.Monitor, Prefix: req.Prefix}
	for rows.Next() {
		var point HistoryPoint
		if err := rows.Scan(&point.Timestamp, &point.Value); err != nil {
			return nil, fmt.Errorf("failed to scan history result: %w", err)
		}
		resp.Points = append(resp.Points, &point)
	}

	return resp, nil
}
