package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const defaultBufferSize = 1000

// LogEntry is one captured log line as served by the logs API.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer keeps the most recent entries in a fixed-size ring.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

var (
	logBuffer = NewLogBuffer(defaultBufferSize)

	callbackMu        sync.RWMutex
	broadcastCallback func(LogEntry)
)

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// GetLogBuffer returns the process-wide buffer fed by the logger.
func GetLogBuffer() *LogBuffer {
	return logBuffer
}

// SetBroadcastCallback registers fn to receive every entry as it is written.
func SetBroadcastCallback(fn func(LogEntry)) {
	callbackMu.Lock()
	defer callbackMu.Unlock()
	broadcastCallback = fn
}

func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()

	callbackMu.RLock()
	fn := broadcastCallback
	callbackMu.RUnlock()
	if fn != nil {
		fn(entry)
	}
}

// GetRecent returns up to limit entries, oldest first.
func (b *LogBuffer) GetRecent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ordered := b.orderedLocked()
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	out := make([]LogEntry, len(ordered))
	copy(out, ordered)
	return out
}

func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make([]LogEntry, len(b.entries))
	b.next = 0
	b.full = false
}

func (b *LogBuffer) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b.GetRecent(0), "", "  ")
}

func (b *LogBuffer) ToText() string {
	var sb strings.Builder
	for _, e := range b.GetRecent(0) {
		sb.WriteString(fmt.Sprintf("%s [%s] %s", e.Timestamp.Format(time.RFC3339), strings.ToUpper(e.Level), e.Message))
		for k, v := range e.Fields {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *LogBuffer) orderedLocked() []LogEntry {
	if !b.full {
		return b.entries[:b.next]
	}
	ordered := make([]LogEntry, 0, len(b.entries))
	ordered = append(ordered, b.entries[b.next:]...)
	ordered = append(ordered, b.entries[:b.next]...)
	return ordered
}

// bufferCore copies every entry that passes the level filter into a LogBuffer.
type bufferCore struct {
	zapcore.LevelEnabler
	buffer *LogBuffer
	fields []zapcore.Field
}

func newBufferCore(level zapcore.LevelEnabler, buffer *LogBuffer) zapcore.Core {
	return &bufferCore{LevelEnabler: level, buffer: buffer}
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &bufferCore{LevelEnabler: c.LevelEnabler, buffer: c.buffer, fields: merged}
}

func (c *bufferCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bufferCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.buffer.Add(LogEntry{
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    enc.Fields,
	})
	return nil
}

func (c *bufferCore) Sync() error { return nil }
