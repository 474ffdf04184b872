// Command send-test-batch posts a small mixed batch to a running schemagate
// so a local setup can be checked end to end.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/jsoncodec"
)

func main() {
	url := flag.String("url", "http://localhost:8080/v1/batch", "Batch endpoint")
	writeKey := flag.String("write-key", "", "Token sent as the Basic-auth username")
	schemaID := flag.String("schema-id", "segment/demo/Test_Event/1-0.json", "schema_id stamped on the events")
	count := flag.Int("n", 3, "Number of schema-bearing events")
	flag.Parse()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	batch := event.Batch{
		Context: map[string]any{"library": map[string]any{"name": "send-test-batch"}},
	}
	for i := 1; i <= *count; i++ {
		batch.Batch = append(batch.Batch, &event.Event{
			Type:      "track",
			Event:     "test_event",
			MessageID: uuid.NewString(),
			UserID:    "test_user_id",
			Timestamp: now,
			Properties: map[string]any{
				"schema_id":     *schemaID,
				"test_property": fmt.Sprintf("test_value_%d", i),
			},
		})
	}
	// Always dead-lettered
	batch.Batch = append(batch.Batch, &event.Event{
		Type:       "track",
		Event:      "test_event_without_schema",
		MessageID:  uuid.NewString(),
		UserID:     "test_user_id",
		Timestamp:  now,
		Properties: map[string]any{"test_property": "orphan"},
	})

	body, err := jsoncodec.Marshal(batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode batch: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if *writeKey != "" {
		req.SetBasicAuth(*writeKey, "")
	}

	fmt.Printf("Sending %d events to %s...\n", len(batch.Batch), *url)
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s\n%s\n", resp.Status, bytes.TrimSpace(respBody))
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
	fmt.Println("Done.")
}
