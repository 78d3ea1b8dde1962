package core

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want log.Level
	}{
		{LogLevelDebug, log.DebugLevel},
		{LogLevelInfo, log.InfoLevel},
		{"WARN", log.WarnLevel},
		{LogLevelError, log.ErrorLevel},
		{"verbose", log.DebugLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel(LogLevelWarn)
	defer func() {
		SetLogLevel(LogLevelDebug)
	}()

	LogInfo("hidden %d", 1)
	LogWarn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden 1") {
		t.Errorf("info message written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := errors.Wrapf(ErrNoMatchingMemoryType, "allocating %d bytes", 128)
	if !errors.Is(err, ErrNoMatchingMemoryType) {
		t.Fatalf("wrapped error lost its sentinel: %v", err)
	}
	if errors.Is(err, ErrNoSuitableDevice) {
		t.Fatalf("wrapped error matched the wrong sentinel: %v", err)
	}
}

func TestEventBusDispatchOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	bus.Register(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		calls = append(calls, "first")
		return false
	})
	bus.Register(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		calls = append(calls, "second")
		re := ctx.Data.(*ResizeEvent)
		return re.Width == 800
	})
	bus.Register(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		calls = append(calls, "third")
		return true
	})

	if !bus.Fire(EVENT_CODE_RESIZED.with(&ResizeEvent{Width: 800, Height: 600})) {
		t.Fatal("event should be reported handled")
	}
	if strings.Join(calls, ",") != "first,second" {
		t.Errorf("calls = %v, want first,second", calls)
	}
	if bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}) {
		t.Error("event without listeners reported handled")
	}
	if bus.Register(MAX_EVENT_CODE, func(EventContext) bool { return true }) {
		t.Error("out of range code accepted")
	}

	bus.Shutdown()
	calls = nil
	bus.Fire(EVENT_CODE_RESIZED.with(&ResizeEvent{}))
	if len(calls) != 0 {
		t.Errorf("listeners survived shutdown: %v", calls)
	}
}

func (c EventCode) with(data interface{}) EventContext {
	return EventContext{Type: c, Data: data}
}

func TestInputKeysAndQuit(t *testing.T) {
	s := NewInputState()

	s.ProcessKey(KEY_W, true)
	if !s.IsKeyDown(KEY_W) || !s.KeyPressed(KEY_W) {
		t.Fatal("W should be down and freshly pressed")
	}
	s.EndFrame()
	if !s.IsKeyDown(KEY_W) || s.KeyPressed(KEY_W) {
		t.Fatal("W should stay held without a new press edge")
	}
	s.ProcessKey(KEY_W, false)
	if s.IsKeyDown(KEY_W) {
		t.Fatal("W should be released")
	}

	s.ProcessKey(KeyCode(9999), true)
	if s.IsKeyDown(KeyCode(9999)) {
		t.Fatal("out of range keys must be ignored")
	}

	if s.QuitRequested() {
		t.Fatal("quit before escape")
	}
	s.ProcessKey(KEY_ESCAPE, true)
	if !s.QuitRequested() {
		t.Fatal("escape should request quit")
	}
}

func TestInputMouseDelta(t *testing.T) {
	s := NewInputState()

	s.ProcessMouseMove(100, 100)
	if dx, dy := s.MouseDelta(); dx != 0 || dy != 0 {
		t.Fatalf("first sample produced delta %v,%v", dx, dy)
	}
	s.ProcessMouseMove(110, 95)
	s.ProcessMouseMove(112, 90)
	if dx, dy := s.MouseDelta(); dx != 12 || dy != -10 {
		t.Fatalf("delta = %v,%v, want 12,-10", dx, dy)
	}

	s.EndFrame()
	if dx, dy := s.MouseDelta(); dx != 0 || dy != 0 {
		t.Fatalf("delta not cleared at frame end: %v,%v", dx, dy)
	}

	s.ResetMouse()
	s.ProcessMouseMove(500, 500)
	if dx, dy := s.MouseDelta(); dx != 0 || dy != 0 {
		t.Fatalf("reset did not drop the reference point: %v,%v", dx, dy)
	}
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 61; i++ {
		m.Update(20 * time.Millisecond)
	}
	// 51 frames of 20ms cross the one second mark.
	if got := m.FPS(); got != 51 {
		t.Errorf("FPS = %v, want 51", got)
	}
	if got := m.FrameTime(); got != 20 {
		t.Errorf("FrameTime = %v, want 20", got)
	}
}
