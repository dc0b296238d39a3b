// Package client provides a Go SDK for the scheduler's HTTP API: task
// CRUD, the read-only admin surface, and a WebSocket client for the
// live-activity feed.
//
// # Basic Usage
//
//	c := client.New("http://localhost:8080")
//
//	task, err := c.CreateTask(ctx, client.CreateTaskRequest{
//	    Def: json.RawMessage(`{"ty":"echo","message":"hello","delay":"1s"}`),
//	})
//
// # WebSocket Events
//
//	if err := c.ConnectWebSocket(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.CloseWebSocket()
//
//	for event := range c.Events() {
//	    fmt.Printf("event: %s\n", event.Type)
//	}
//
// # Configuration
//
// The client supports functional options for configuration:
//
//	c := client.New("http://localhost:8080",
//	    client.WithAPIKey("your-api-key"),
//	    client.WithTimeout(30*time.Second),
//	)
package client
