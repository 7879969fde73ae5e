package webserver

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

// logClient is one /api/logs/stream subscriber.
type logClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
	send chan logger.LogEntry
}

type LogStreamer struct {
	clients    map[*logClient]bool
	broadcast  chan logger.LogEntry
	register   chan *logClient
	unregister chan *logClient
}

var logStreamer = &LogStreamer{
	clients:    make(map[*logClient]bool),
	broadcast:  make(chan logger.LogEntry, 256),
	register:   make(chan *logClient),
	unregister: make(chan *logClient),
}

func init() {
	go logStreamer.run()

	logger.SetBroadcastCallback(func(entry logger.LogEntry) {
		BroadcastLog(entry)
	})
}

func (ls *LogStreamer) run() {
	for {
		select {
		case client := <-ls.register:
			ls.clients[client] = true

		case client := <-ls.unregister:
			if _, ok := ls.clients[client]; ok {
				delete(ls.clients, client)
				close(client.send)
				client.conn.Close()
			}

		case entry := <-ls.broadcast:
			for client := range ls.clients {
				select {
				case client.send <- entry:
				default:
					// Blocked subscriber; skip this entry for it.
				}
			}
		}
	}
}

// BroadcastLog sends a log entry to all stream subscribers.
func BroadcastLog(entry logger.LogEntry) {
	select {
	case logStreamer.broadcast <- entry:
	default:
	}
}

func handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	logs := logger.GetLogBuffer().GetRecent(limit)
	writeJSON(w, map[string]interface{}{
		"logs":      logs,
		"count":     len(logs),
		"timestamp": time.Now(),
	})
}

func handleLogsDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	buffer := logger.GetLogBuffer()
	stamp := time.Now().Format("20060102-150405")

	switch format {
	case "json":
		data, err := buffer.ToJSON()
		if err != nil {
			http.Error(w, "Failed to generate JSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=legacy-code-converter-logs-%s.json", stamp))
		_, _ = w.Write(data)

	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=legacy-code-converter-logs-%s.txt", stamp))
		_, _ = w.Write([]byte(buffer.ToText()))

	default:
		http.Error(w, "Invalid format. Use 'json' or 'text'", http.StatusBadRequest)
	}
}

// handleLogsStream pushes recent and live log entries over a WebSocket.
func handleLogsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	client := &logClient{
		conn: conn,
		send: make(chan logger.LogEntry, 256),
	}
	for _, entry := range logger.GetLogBuffer().GetRecent(50) {
		client.send <- entry
	}

	logStreamer.register <- client
	defer func() {
		logStreamer.unregister <- client
	}()

	go client.writePump()

	// Reading keeps the connection alive until the browser closes it.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *logClient) writePump() {
	defer c.conn.Close()

	for entry := range c.send {
		c.mu.Lock()
		err := c.conn.WriteJSON(entry)
		c.mu.Unlock()

		if err != nil {
			return
		}
	}
}

func handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger.GetLogBuffer().Clear()
	logger.Info("Log buffer cleared")

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Log buffer cleared",
	})
}
