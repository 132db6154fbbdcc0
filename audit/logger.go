package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config defines audit logging configuration
type Config struct {
	Enabled bool                   `json:"enabled"`
	Type    ConfigType             `json:"type"`    // "file", "syslog", etc.
	Options map[string]interface{} `json:"options"` // Provider-specific options
}

type ConfigType string

const (
	FileAuditType   ConfigType = "file"
	SyslogAuditType ConfigType = "syslog"
	NoOp            ConfigType = ""
)

// Actions recorded by the key manager.
const (
	ActionKeyGenerate       = "key.generate"
	ActionKeyDelete         = "key.delete"
	ActionCacheRepair       = "cache.repair"
	ActionEncryptSubmission = "encrypt.submission"
	ActionEncryptFile       = "encrypt.file"
	ActionEncryptReply      = "encrypt.reply"
	ActionDecryptReply      = "decrypt.reply"
	ActionCommand           = "cli.command"
)

// Logger interface for pluggable audit implementations
type Logger interface {
	Log(action string, success bool, metadata map[string]interface{}) error
	Query(options QueryOptions) (QueryResult, error)
	Close() error
}

// Event represents an audit log event. Identity and Fingerprint are
// lifted out of the metadata when present so queries can filter on them
// without unpacking the metadata map. Passphrases and plaintext never
// appear in events.
type Event struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Action      string                 `json:"action"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	Identity    string                 `json:"identity,omitempty"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// QueryOptions for filtering audit logs
type QueryOptions struct {
	Since    *time.Time
	Until    *time.Time
	Action   string
	Success  *bool // nil = all, true = only success, false = only failures
	Identity string
	Limit    int
}

// QueryResult contains the results of an audit query
type QueryResult struct {
	Events     []Event `json:"events"`
	TotalCount int     `json:"total_count"`
	Filtered   int     `json:"filtered"`
	HasMore    bool    `json:"has_more"`
}

// NewLogger creates an appropriate logger based on configuration
func NewLogger(config *Config) (Logger, error) {
	if config == nil || !config.Enabled {
		return &NoOpLogger{}, nil
	}

	switch config.Type {
	case FileAuditType:
		return NewFileLogger(config)
	case SyslogAuditType:
		return NewSyslogLogger(config)
	case NoOp:
		return &NoOpLogger{}, nil
	default:
		return nil, fmt.Errorf("unknown audit provider: %s", config.Type)
	}
}

// parseOptions converts map[string]interface{} to specific options struct
func parseOptions(options map[string]interface{}, target interface{}) error {
	if len(options) == 0 {
		return nil
	}

	// Convert to JSON and back to parse into struct
	jsonData, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	if err = json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("failed to unmarshal options: %w", err)
	}

	return nil
}

// newEvent builds an Event from a Log call, lifting the well-known
// metadata fields into their dedicated columns.
func newEvent(action string, success bool, metadata map[string]interface{}) Event {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Success:   success,
		Metadata:  metadata,
	}
	if v, ok := metadata["identity"].(string); ok {
		event.Identity = v
	}
	if v, ok := metadata["fingerprint"].(string); ok {
		event.Fingerprint = v
	}
	if v, ok := metadata["error"].(string); ok {
		event.Error = v
	}
	return event
}
