package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/store"
)

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(s.ID, "sess_") {
		t.Errorf("id = %q, want sess_ prefix", s.ID)
	}
	if s.Stage != models.StageAskGDPR {
		t.Errorf("stage = %s, want %s", s.Stage, models.StageAskGDPR)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("got %s, want %s", got.ID, s.ID)
	}
}

func TestManager_GetErrors(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	if _, err := m.Get(""); !errors.Is(err, models.ErrEmptySessionID) {
		t.Errorf("empty id err = %v", err)
	}
	if _, err := m.Get("sess_missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("missing session err = %v", err)
	}
}

func TestManager_Touch(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	s := models.NewSession("sess_x")
	old := s.LastActivity
	time.Sleep(time.Millisecond)
	m.Touch(s)
	if !s.LastActivity.After(old) {
		t.Error("Touch did not advance LastActivity")
	}
}

func TestManager_CleanupOnce(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewManager(st, WithTTL(time.Hour))

	stale := models.NewSession("sess_stale")
	stale.LastActivity = time.Now().Add(-2 * time.Hour)
	st.SaveSession(stale)
	fresh := models.NewSession("sess_fresh")
	st.SaveSession(fresh)

	m.CleanupOnce()

	if got, _ := st.GetSession("sess_stale"); got != nil {
		t.Error("stale session survived the sweep")
	}
	if got, _ := st.GetSession("sess_fresh"); got == nil {
		t.Error("fresh session was removed")
	}
}

func TestManager_StartCleanup_BadSpec(t *testing.T) {
	m := NewManager(store.NewInMemoryStore(), WithCleanupSpec("not a cron spec"))
	if err := m.StartCleanup(); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestManager_StartStopCleanup(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	if err := m.StartCleanup(); err != nil {
		t.Fatalf("StartCleanup: %v", err)
	}
	m.StopCleanup()
	m.StopCleanup() // idempotent
}

func TestSaver_BatchesWrites(t *testing.T) {
	st := store.NewInMemoryStore()
	sv := NewSaver(st)

	s := models.NewSession("sess_1")
	s.UserName = "first"
	if err := sv.MarkDirty(s); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	s.UserName = "second"
	if err := sv.MarkDirty(s); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	if sv.Pending() != 1 {
		t.Errorf("pending = %d, want 1 (same session coalesces)", sv.Pending())
	}

	// Nothing hits the store before the flush.
	if got, _ := st.GetSession("sess_1"); got != nil {
		t.Fatal("session persisted before Flush")
	}

	if err := sv.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got, _ := st.GetSession("sess_1")
	if got == nil || got.UserName != "second" {
		t.Errorf("flushed session = %+v, want latest mark", got)
	}
	if sv.Pending() != 0 {
		t.Errorf("pending after flush = %d", sv.Pending())
	}
}

type failingStore struct {
	store.Store
	fail bool
}

func (f *failingStore) SaveSession(s *models.Session) error {
	if f.fail {
		return errors.New("disk on fire")
	}
	return f.Store.SaveSession(s)
}

func TestSaver_FailedWriteStaysQueued(t *testing.T) {
	inner := store.NewInMemoryStore()
	fs := &failingStore{Store: inner, fail: true}
	sv := NewSaver(fs)

	sv.MarkDirty(models.NewSession("sess_err"))
	if err := sv.Flush(); err == nil {
		t.Fatal("expected flush error")
	}
	if sv.Pending() != 1 {
		t.Errorf("failed session should stay queued, pending = %d", sv.Pending())
	}

	fs.fail = false
	if err := sv.Flush(); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if got, _ := inner.GetSession("sess_err"); got == nil {
		t.Error("session not persisted on retry")
	}
}

func TestSaver_Close(t *testing.T) {
	st := store.NewInMemoryStore()
	sv := NewSaver(st)
	sv.MarkDirty(models.NewSession("sess_close"))
	if err := sv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, _ := st.GetSession("sess_close"); got == nil {
		t.Error("Close did not flush")
	}
	if err := sv.MarkDirty(models.NewSession("sess_late")); !errors.Is(err, ErrSaverClosed) {
		t.Errorf("MarkDirty after Close: %v", err)
	}
}
