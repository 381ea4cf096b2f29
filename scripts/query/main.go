package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// --- API Query Structs ---
type TopClustersRequest struct {
	Monitor  string `json:"monitor"`
	EndTime  string `json:"end_time,omitempty"`
	MinDepth int    `json:"min_depth,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type threshPayload struct {
	Threshold int32 `json:"threshold"`
}

type resetPayload struct {
	Baseline int64 `json:"baseline"`
}

// --- Main Function ---
func main() {
	// Define command-line flags
	mode := flag.String("mode", "api", "Query mode: 'mgmt' for the live management API, 'api' for the history API, 'direct' to query ClickHouse directly.")
	monitor := flag.String("monitor", "", "The name of the monitor to query.")
	op := flag.String("op", "look", "Management operation: 'look', 'thresh', 'reset' or 'since' (mgmt mode).")
	value := flag.Int("value", -1, "New threshold for 'thresh'; -1 reads the current one (mgmt mode).")
	baseline := flag.Int64("baseline", 0, "Baseline counter value for 'reset' (mgmt mode).")
	limit := flag.Int("limit", 10, "Number of clusters to return (api and direct modes).")
	minDepth := flag.Int("mindepth", 0, "Minimum cluster depth (api mode).")
	mgmtAddr := flag.String("mgmt-addr", "http://localhost:9090", "Base URL of the management API.")
	apiAddr := flag.String("api-addr", "http://localhost:8080", "Base URL of the history API.")

	defaultEnd := time.Now().UTC().Format(time.RFC3339)
	endTimeStr := flag.String("end", defaultEnd, "End time in RFC3339 format (e.g., 2026-08-25T15:10:00Z).")

	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "mgmt":
		queryManagementAPI(*mgmtAddr, *monitor, *op, *value, *baseline)
	case "api":
		queryHistoryAPI(*apiAddr, *monitor, *endTimeStr, *minDepth, *limit)
	case "direct":
		directQueryClickHouse(*monitor, *endTimeStr, *limit)
	default:
		log.Fatalf("Invalid mode: %s. Use 'mgmt', 'api' or 'direct'.", *mode)
	}
}

// --- Management API Logic ---
func queryManagementAPI(baseURL, monitor, op string, value int, baseline int64) {
	if monitor == "" {
		log.Fatal("Error: -monitor flag is required for mgmt mode.")
	}
	monitorURL := fmt.Sprintf("%s/api/v1/monitors/%s", baseURL, monitor)

	var (
		resp *http.Response
		err  error
	)
	switch op {
	case "look":
		resp, err = http.Get(monitorURL + "/look")
	case "since":
		resp, err = http.Get(monitorURL + "/since")
	case "thresh":
		if value < 0 {
			resp, err = http.Get(monitorURL + "/thresh")
			break
		}
		body, merr := json.Marshal(threshPayload{Threshold: int32(value)})
		if merr != nil {
			log.Fatalf("Error marshalling request body: %v", merr)
		}
		req, rerr := http.NewRequest(http.MethodPut, monitorURL+"/thresh", bytes.NewBuffer(body))
		if rerr != nil {
			log.Fatalf("Error building request: %v", rerr)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err = http.DefaultClient.Do(req)
	case "reset":
		body, merr := json.Marshal(resetPayload{Baseline: baseline})
		if merr != nil {
			log.Fatalf("Error marshalling request body: %v", merr)
		}
		resp, err = http.Post(monitorURL+"/reset", "application/json", bytes.NewBuffer(body))
	default:
		log.Fatalf("Invalid op: %s. Use 'look', 'thresh', 'reset' or 'since'.", op)
	}
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	// The look dump is plain text; everything else is JSON.
	if op == "look" {
		fmt.Print(string(respBody))
		return
	}
	printJSON(respBody)
}

// --- History API Logic ---
func queryHistoryAPI(baseURL, monitor, endTime string, minDepth, limit int) {
	apiURL := baseURL + "/api/v1/clusters/top"

	reqBody := TopClustersRequest{
		Monitor:  monitor,
		EndTime:  endTime,
		MinDepth: minDepth,
		Limit:    limit,
	}

	jsonReqBody, err := json.Marshal(reqBody)
	if err != nil {
		log.Fatalf("Error marshalling request body: %v", err)
	}

	log.Printf("Sending request to %s with body:\n%s\n", apiURL, string(jsonReqBody))

	resp, err := http.Post(apiURL, "application/json", bytes.NewBuffer(jsonReqBody))
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	log.Println("---")
	printJSON(respBody)
}

func printJSON(respBody []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}
	fmt.Println(prettyJSON.String())
}

// --- Direct ClickHouse Query Logic ---
func directQueryClickHouse(monitor, endTimeStr string, limit int) {
	if monitor == "" {
		log.Fatal("Error: -monitor flag is required for direct mode.")
	}

	connOpts := clickhouse.Options{
		Addr: []string{"localhost:9000"},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "123",
		},
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			Prefix,
			argMax(Value, Timestamp) AS LatestValue,
			max(Timestamp) AS LastSeen
		FROM cluster_metrics
`)

	var whereClauses []string
	args := []interface{}{}

	whereClauses = append(whereClauses, "Monitor = ?")
	args = append(args, monitor)

	endTime, err := time.Parse(time.RFC3339, endTimeStr)
	if err != nil {
		log.Fatalf("Invalid end time format: %v", err)
	}
	whereClauses = append(whereClauses, "Timestamp <= ?")
	args = append(args, endTime)

	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString("\n\t\tGROUP BY Prefix\n\t\tORDER BY LatestValue DESC\n\t\tLIMIT ?\n")
	args = append(args, limit)

	conn, err := clickhouse.Open(&connOpts)
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}
	defer conn.Close()

	log.Println("Successfully connected to ClickHouse.")

	rows, err := conn.Query(context.Background(), queryBuilder.String(), args...)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	defer rows.Close()

	log.Println("--- Hottest Clusters (Direct) ---")

	var foundResult bool
	for rows.Next() {
		foundResult = true
		var (
			prefix      string
			latestValue int32
			lastSeen    time.Time
		)

		if err := rows.Scan(&prefix, &latestValue, &lastSeen); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		fmt.Printf("%-15s %10d  (last seen %s)\n", prefix, latestValue, lastSeen.Format(time.RFC3339))
	}

	if !foundResult {
		log.Println("No data found for the specified criteria.")
	}

	if err := rows.Err(); err != nil {
		log.Printf("An error occurred during row iteration: %v", err)
	}
}
