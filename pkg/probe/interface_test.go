package probe

import (
	"context"
	"testing"
	"time"
)

type MockProcessProbe struct {
	info       *ProcessInfo
	findError  error
	closeError error
}

func (m *MockProcessProbe) Find(ctx context.Context, name string) (*ProcessInfo, error) {
	return m.info, m.findError
}

func (m *MockProcessProbe) Close() error {
	return m.closeError
}

type MockInputProbe struct {
	lastInput   time.Time
	inputError  error
	isAvailable bool
	closeError  error
}

func (m *MockInputProbe) LastInput(ctx context.Context) (time.Time, error) {
	return m.lastInput, m.inputError
}

func (m *MockInputProbe) IsAvailable() bool {
	return m.isAvailable
}

func (m *MockInputProbe) Close() error {
	return m.closeError
}

func TestMockProcessProbe(t *testing.T) {
	var _ ProcessProbe = (*MockProcessProbe)(nil)

	started := time.Now().Add(-time.Hour)
	mock := &MockProcessProbe{
		info: &ProcessInfo{PID: 1234, StartedAt: started},
	}

	info, err := mock.Find(context.Background(), "test")
	if err != nil {
		t.Errorf("Find() error: %v", err)
	}
	if info.PID != 1234 {
		t.Errorf("PID = %d, want 1234", info.PID)
	}
	if !info.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", info.StartedAt, started)
	}

	// Not running is nil info with nil error.
	mock.info = nil
	info, err = mock.Find(context.Background(), "test")
	if err != nil {
		t.Errorf("Find() error: %v", err)
	}
	if info != nil {
		t.Errorf("info = %v, want nil for a stopped process", info)
	}

	if err := mock.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestMockInputProbe(t *testing.T) {
	var _ InputProbe = (*MockInputProbe)(nil)

	lastInput := time.Now().Add(-30 * time.Second)
	mock := &MockInputProbe{
		lastInput:   lastInput,
		isAvailable: true,
	}

	if !mock.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}

	got, err := mock.LastInput(context.Background())
	if err != nil {
		t.Errorf("LastInput() error: %v", err)
	}
	if !got.Equal(lastInput) {
		t.Errorf("LastInput() = %v, want %v", got, lastInput)
	}

	if err := mock.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
