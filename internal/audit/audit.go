package audit

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/arcanum-sh/arcanum/internal/configs"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // OS username performing the action.
	Operation string `json:"op"`   // Operation name.

	// Optional fields depending on operation.
	Files      []string `json:"files,omitempty"`       // For rekey/cache.
	Source     string   `json:"source,omitempty"`      // For encrypt/decrypt/edit/merge.
	Dest       string   `json:"dest,omitempty"`        // For decrypt.
	Recipients int      `json:"recipients,omitempty"`  // Size of the recipient set used.
	FilesCount int      `json:"files_count,omitempty"` // For batch operations.
	Clean      bool     `json:"clean,omitempty"`       // For merge.
}

// LogWithUser creates an entry stamped with the current OS user.
func LogWithUser(operation string) Entry {
	entry := Entry{Operation: operation}
	if u, err := user.Current(); err == nil {
		entry.User = u.Username
	}
	return entry
}

// Log appends an entry to the project audit log (.arcanum/audit.jsonl).
// Best-effort: operations never fail because audit logging failed.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := configs.ProjectArcanumSettings.AuditLogPath
	if logPath == "" {
		// Project not initialized, skip logging.
		return
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return
	}

	// #nosec G306 -- the audit log carries no secret material and should be
	// readable by the team.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = f.Write(append(line, '\n'))
}
