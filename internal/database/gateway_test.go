package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/engziada/procwatch/internal/models"

	"github.com/pkg/errors"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "procwatch.db"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	return NewGateway(db)
}

func TestUpsertProcessIsIdempotentPerName(t *testing.T) {
	g := newTestGateway(t)

	first, err := g.UpsertProcess("Notepad", 100, base, 10)
	if err != nil {
		t.Fatalf("UpsertProcess: %v", err)
	}
	if first.ProcessName != "notepad" {
		t.Errorf("name = %q, want lowercased %q", first.ProcessName, "notepad")
	}

	// Different case, new pid: same row updated.
	second, err := g.UpsertProcess("NOTEPAD", 200, base.Add(time.Second), 11)
	if err != nil {
		t.Fatalf("UpsertProcess: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second upsert created a new row: %d != %d", second.ID, first.ID)
	}
	if second.PID == nil || *second.PID != 200 {
		t.Errorf("pid = %v, want 200", second.PID)
	}
	if second.LastUptimeSeconds != 11 {
		t.Errorf("uptime = %v, want 11", second.LastUptimeSeconds)
	}

	procs, err := g.ListProcesses()
	if err != nil {
		t.Fatalf("ListProcesses: %v", err)
	}
	if len(procs) != 1 {
		t.Fatalf("expected 1 process row, got %d", len(procs))
	}
}

func TestClearPID(t *testing.T) {
	g := newTestGateway(t)

	proc, err := g.UpsertProcess("app", 42, base, 1)
	if err != nil {
		t.Fatalf("UpsertProcess: %v", err)
	}
	if proc.PID == nil {
		t.Fatal("pid should be set after upsert")
	}

	if err := g.ClearPID("APP"); err != nil {
		t.Fatalf("ClearPID: %v", err)
	}

	procs, err := g.ListProcesses()
	if err != nil {
		t.Fatalf("ListProcesses: %v", err)
	}
	if procs[0].PID != nil {
		t.Errorf("pid = %v, want nil", *procs[0].PID)
	}

	// Unknown names are a no-op, not an error.
	if err := g.ClearPID("never-seen"); err != nil {
		t.Errorf("ClearPID(unknown): %v", err)
	}
}

func TestOpenSessionRejectsSecondOpen(t *testing.T) {
	g := newTestGateway(t)

	proc, _ := g.UpsertProcess("app", 1, base, 0)

	if _, err := g.OpenSession(proc.ID, base); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	_, err := g.OpenSession(proc.ID, base.Add(time.Second))
	if !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("second open returned %v, want ErrSessionOpen", err)
	}
}

func TestUpdateActivityOnClosedSessionIsStale(t *testing.T) {
	g := newTestGateway(t)

	proc, _ := g.UpsertProcess("app", 1, base, 0)
	handle, err := g.OpenSession(proc.ID, base)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	if err := g.UpdateActivity(handle, base.Add(time.Second)); err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}

	if err := g.CloseSession(handle, base.Add(2*time.Second)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	err = g.UpdateActivity(handle, base.Add(3*time.Second))
	if !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("UpdateActivity after close returned %v, want ErrStaleHandle", err)
	}

	// The closed session must not have been resurrected or touched.
	sessions, err := g.ListSessions("app", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].EndTime == nil {
		t.Fatal("closed session was resurrected")
	}
	if !sessions[0].LastActivityTime.Equal(base.Add(time.Second)) {
		t.Errorf("lastActivity = %v, want %v", sessions[0].LastActivityTime, base.Add(time.Second))
	}
}

func TestCloseSessionIdempotence(t *testing.T) {
	g := newTestGateway(t)

	proc, _ := g.UpsertProcess("app", 1, base, 0)
	handle, _ := g.OpenSession(proc.ID, base)

	end := base.Add(10 * time.Second)
	if err := g.CloseSession(handle, end); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	// Same end time: idempotent.
	if err := g.CloseSession(handle, end); err != nil {
		t.Fatalf("repeated CloseSession with same end: %v", err)
	}

	// Different end time: rejected.
	err := g.CloseSession(handle, end.Add(time.Second))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("CloseSession with different end returned %v, want ErrAlreadyClosed", err)
	}

	sessions, _ := g.ListSessions("app", time.Time{}, time.Time{})
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session row, got %d", len(sessions))
	}
	if sessions[0].DurationSeconds == nil || *sessions[0].DurationSeconds != 10 {
		t.Errorf("duration = %v, want 10", sessions[0].DurationSeconds)
	}
}

func TestCloseSessionUnknownHandleIsStale(t *testing.T) {
	g := newTestGateway(t)

	err := g.CloseSession(models.SessionHandle{SessionID: 999}, base)
	if !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("CloseSession(unknown) returned %v, want ErrStaleHandle", err)
	}
}

func TestListSessionsOrderAndRange(t *testing.T) {
	g := newTestGateway(t)

	proc, _ := g.UpsertProcess("app", 1, base, 0)

	starts := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}
	for _, start := range starts {
		handle, err := g.OpenSession(proc.ID, start)
		if err != nil {
			t.Fatalf("OpenSession(%v): %v", start, err)
		}
		if err := g.CloseSession(handle, start.Add(30*time.Second)); err != nil {
			t.Fatalf("CloseSession: %v", err)
		}
	}

	all, err := g.ListSessions("APP", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].StartTime.Before(all[i-1].StartTime) {
			t.Fatal("sessions not ordered by start time ascending")
		}
	}

	// Range [start of second, start of third) keeps only the middle one.
	ranged, err := g.ListSessions("app", starts[1], starts[2])
	if err != nil {
		t.Fatalf("ListSessions(range): %v", err)
	}
	if len(ranged) != 1 || !ranged[0].StartTime.Equal(starts[1]) {
		t.Fatalf("range query returned %d sessions", len(ranged))
	}
}

func TestCloseAllOpen(t *testing.T) {
	g := newTestGateway(t)

	a, _ := g.UpsertProcess("a", 1, base, 0)
	b, _ := g.UpsertProcess("b", 2, base, 0)
	if _, err := g.OpenSession(a.ID, base); err != nil {
		t.Fatalf("OpenSession(a): %v", err)
	}
	if _, err := g.OpenSession(b.ID, base); err != nil {
		t.Fatalf("OpenSession(b): %v", err)
	}

	end := base.Add(time.Minute)
	n, err := g.CloseAllOpen(end)
	if err != nil {
		t.Fatalf("CloseAllOpen: %v", err)
	}
	if n != 2 {
		t.Errorf("closed %d sessions, want 2", n)
	}

	for _, name := range []string{"a", "b"} {
		sessions, _ := g.ListSessions(name, time.Time{}, time.Time{})
		if len(sessions) != 1 || sessions[0].EndTime == nil {
			t.Errorf("%s: session left open", name)
		}
	}

	// Nothing left to close.
	n, err = g.CloseAllOpen(end.Add(time.Minute))
	if err != nil {
		t.Fatalf("CloseAllOpen (second): %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep closed %d sessions, want 0", n)
	}
}

func TestSessionSummaries(t *testing.T) {
	g := newTestGateway(t)

	a, _ := g.UpsertProcess("editor", 1, base, 0)
	b, _ := g.UpsertProcess("game", 2, base, 0)

	// editor: two sessions of 60s; game: one of 30s.
	for i := 0; i < 2; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		handle, _ := g.OpenSession(a.ID, start)
		if err := g.CloseSession(handle, start.Add(time.Minute)); err != nil {
			t.Fatalf("CloseSession: %v", err)
		}
	}
	handle, _ := g.OpenSession(b.ID, base)
	if err := g.CloseSession(handle, base.Add(30*time.Second)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	// An open session must not count.
	handle, _ = g.OpenSession(b.ID, base.Add(time.Hour))
	_ = handle

	summaries, err := g.SessionSummaries(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SessionSummaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// Ordered by total time descending.
	if summaries[0].ProcessName != "editor" {
		t.Errorf("first summary = %q, want editor", summaries[0].ProcessName)
	}
	if summaries[0].TotalSeconds != 120 {
		t.Errorf("editor total = %v, want 120", summaries[0].TotalSeconds)
	}
	if summaries[0].SessionCount != 2 {
		t.Errorf("editor sessions = %d, want 2", summaries[0].SessionCount)
	}
	if summaries[0].AvgSeconds != 60 {
		t.Errorf("editor avg = %v, want 60", summaries[0].AvgSeconds)
	}
	if summaries[1].TotalSeconds != 30 {
		t.Errorf("game total = %v, want 30", summaries[1].TotalSeconds)
	}
}
