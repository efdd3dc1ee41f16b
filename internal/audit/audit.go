// Package audit appends one CSV row per conversation turn to a flow audit
// file. The file is what the shop reviews to tune stage wording and spot
// flows that die half way.
package audit

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/stirosario/tecnos/internal/models"
)

var header = []string{
	"ts", "sessionId", "turnId", "stageBefore", "stageAfter",
	"eventKind", "eventValue", "action", "violations", "botReply",
}

// maxReplyLen bounds the reply excerpt kept per row.
const maxReplyLen = 120

// Logger appends turn rows to a CSV file. Safe for concurrent use.
type Logger struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// Open opens (or creates) the audit file in append mode, writing the
// header when the file is new.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat audit file: %w", err)
	}
	l := &Logger{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write audit header: %w", err)
		}
		l.w.Flush()
	}
	slog.Debug("audit.Open: flow audit file ready", "path", path)
	return l, nil
}

// Record appends one turn row and flushes it to disk.
func (l *Logger) Record(sessionID string, tl models.TurnLog) error {
	eventValue := tl.UserEvent.Text
	if tl.UserEvent.Kind == "button" {
		eventValue = string(tl.UserEvent.Token)
	}
	reply := tl.BotReply
	if len(reply) > maxReplyLen {
		reply = reply[:maxReplyLen]
	}
	row := []string{
		tl.TS.UTC().Format(time.RFC3339),
		sessionID,
		tl.TurnID,
		string(tl.StageBefore),
		string(tl.StageAfter),
		tl.UserEvent.Kind,
		eventValue,
		string(tl.Action),
		strings.Join(tl.Violations, "|"),
		reply,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit row: %w", err)
	}
	return nil
}

// Close flushes and closes the audit file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
