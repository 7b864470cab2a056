// Package audit produces structured outcome records for every unit of work
// the gateway executes, and defines the sink boundary they are emitted to.
// The core only produces records; persistence is the sink's concern.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/querygate/querygate/pkg/security"
)

const previewLength = 100

// Record is one structured audit record for a query execution.
type Record struct {
	// ID uniquely identifies the record
	ID string `json:"id"`
	// Timestamp is when the record was created
	Timestamp time.Time `json:"timestamp"`
	// Server names the gateway instance
	Server string `json:"server"`
	// Backend names the database engine the query ran against
	Backend string `json:"backend"`
	// Tool names the operation (execute_query, list_tables, ...)
	Tool string `json:"tool"`
	// User identifies the requesting principal, "unknown" if absent
	User string `json:"user"`
	// QueryHash is the first 16 hex characters of the query's SHA-256
	QueryHash string `json:"query_hash"`
	// QueryType classifies the query (SELECT, INSERT, DDL, ...)
	QueryType string `json:"query_type"`
	// QueryPreview is the query text truncated to 100 characters
	QueryPreview string `json:"query_preview"`
	// Success reports whether the execution completed
	Success bool `json:"success"`
	// Error carries the failure message when Success is false
	Error string `json:"error,omitempty"`
	// RowsReturned is the number of rows in the (possibly truncated) result
	RowsReturned int `json:"rows_returned"`
	// Duration is the total pipeline time for this request
	Duration time.Duration `json:"duration"`
}

// NewRecord builds an audit record for one query. The query text itself is
// never stored whole: only its hash, type, and a short preview.
func NewRecord(server, backend, tool, user, query string) Record {
	if user == "" {
		user = "unknown"
	}

	return Record{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Server:       server,
		Backend:      backend,
		Tool:         tool,
		User:         user,
		QueryHash:    HashQuery(query),
		QueryType:    string(security.ClassifyQuery(query)),
		QueryPreview: preview(query),
	}
}

// Complete finalizes the record with the execution outcome.
func (r Record) Complete(success bool, err error, rows int, duration time.Duration) Record {
	r.Success = success
	if err != nil {
		r.Error = err.Error()
	}
	r.RowsReturned = rows
	r.Duration = duration
	return r
}

// HashQuery returns the first 16 hex characters of the query's SHA-256 hash,
// enough to correlate repeated executions without storing the text.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])[:16]
}

func preview(query string) string {
	if len(query) > previewLength {
		return query[:previewLength] + "..."
	}
	return query
}

// SanitizeArgs masks values of argument keys that look credential-bearing
// before they are logged.
func SanitizeArgs(args map[string]interface{}) map[string]interface{} {
	sensitiveKeys := []string{"password", "secret", "token", "key", "credential"}

	sanitized := make(map[string]interface{}, len(args))
	for k, v := range args {
		kLower := strings.ToLower(k)
		masked := false
		for _, s := range sensitiveKeys {
			if strings.Contains(kLower, s) {
				masked = true
				break
			}
		}
		if masked {
			sanitized[k] = "***"
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}

// Sink receives completed audit records. Implementations must be safe for
// concurrent use; Emit must not block the execution path for long.
type Sink interface {
	Emit(ctx context.Context, record Record)
}
