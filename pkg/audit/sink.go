package audit

import (
	"context"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// LogSink emits audit records as structured log entries.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{
		logger: logger.With(zap.String("component", "audit")),
	}
}

// Emit logs the record at info level with structured fields.
func (s *LogSink) Emit(_ context.Context, record Record) {
	s.logger.Info("audit record",
		zap.String("id", record.ID),
		zap.Time("timestamp", record.Timestamp),
		zap.String("server", record.Server),
		zap.String("backend", record.Backend),
		zap.String("tool", record.Tool),
		zap.String("user", record.User),
		zap.String("query_hash", record.QueryHash),
		zap.String("query_type", record.QueryType),
		zap.String("query_preview", record.QueryPreview),
		zap.Bool("success", record.Success),
		zap.String("error", record.Error),
		zap.Int("rows_returned", record.RowsReturned),
		zap.Duration("duration", record.Duration))
}

// JSONLSink emits audit records as JSON lines to a writer.
type JSONLSink struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.Logger
}

// NewJSONLSink creates a sink appending one JSON object per line.
func NewJSONLSink(w io.Writer, logger *zap.Logger) *JSONLSink {
	return &JSONLSink{
		w:      w,
		logger: logger.With(zap.String("component", "audit")),
	}
}

// Emit serializes the record and appends it to the writer. Serialization or
// write failures are logged, never propagated to the execution path.
func (s *JSONLSink) Emit(_ context.Context, record Record) {
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("failed to marshal audit record", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		s.logger.Error("failed to write audit record", zap.Error(err))
	}
}

// NopSink discards all records.
type NopSink struct{}

// Emit discards the record.
func (NopSink) Emit(context.Context, Record) {}
