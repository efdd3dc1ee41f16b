package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stirosario/tecnos/internal/models"
)

func sampleTurn() models.TurnLog {
	return models.TurnLog{
		TurnID:      "t_abc123",
		TS:          time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		StageBefore: models.StageAskGDPR,
		StageAfter:  models.StageAskLanguage,
		UserEvent:   models.UserEvent{Kind: "button", Token: models.BtnGDPRAccept},
		Action:      models.ActionConsentAccepted,
		BotReply:    "¡Genial!",
	}
}

func TestRecord_WritesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow-audit.csv")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Record("sess_1", sampleTurn()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "ts" || rows[0][1] != "sessionId" {
		t.Errorf("header = %v", rows[0])
	}
	row := rows[1]
	if row[1] != "sess_1" || row[3] != "ASK_GDPR" || row[4] != "ASK_LANGUAGE" {
		t.Errorf("row = %v", row)
	}
	if row[5] != "button" || row[6] != "BTN_GDPR_ACCEPT" {
		t.Errorf("event columns = %v", row[5:7])
	}
}

func TestRecord_AppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow-audit.csv")

	l, _ := Open(path)
	l.Record("sess_1", sampleTurn())
	l.Close()

	l, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	l.Record("sess_2", sampleTurn())
	l.Close()

	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "ts,sessionId"); got != 1 {
		t.Errorf("header written %d times, want 1", got)
	}
	if !strings.Contains(string(data), "sess_2") {
		t.Error("second row missing")
	}
}

func TestRecord_TruncatesLongReply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow-audit.csv")
	l, _ := Open(path)
	tl := sampleTurn()
	tl.BotReply = strings.Repeat("x", maxReplyLen*2)
	l.Record("sess_1", tl)
	l.Close()

	f, _ := os.Open(path)
	defer f.Close()
	rows, _ := csv.NewReader(f).ReadAll()
	if got := len(rows[1][9]); got != maxReplyLen {
		t.Errorf("reply length = %d, want %d", got, maxReplyLen)
	}
}

func TestRecord_JoinsViolations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow-audit.csv")
	l, _ := Open(path)
	tl := sampleTurn()
	tl.Violations = []string{"TOKEN_NOT_ALLOWED: BTN_X", "TEXT_NOT_ALLOWED: ENDED"}
	l.Record("sess_1", tl)
	l.Close()

	f, _ := os.Open(path)
	defer f.Close()
	rows, _ := csv.NewReader(f).ReadAll()
	if !strings.Contains(rows[1][8], "|") {
		t.Errorf("violations column = %q", rows[1][8])
	}
}
