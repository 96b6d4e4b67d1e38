package oracle

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoOracle is a shell script that speaks the sentinel protocol: it prints
// the sentinel when ready, then answers every input line.
const echoOracle = `echo ">>"; while read line; do echo "reply: $line"; echo ">>"; done`

func newEchoPipe(t *testing.T) *Pipe {
	t.Helper()
	p := New("/bin/sh", echoOracle, ">>", newTestLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestStart_ConsumesBanner(t *testing.T) {
	script := `echo "welcome to the oracle"; echo "v1.0"; echo ">>"; while read line; do echo "ok"; echo ">>"; done`
	p := New("/bin/sh", script, ">>", newTestLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	if p.State() != StateReady {
		t.Errorf("State() = %v, want %v", p.State(), StateReady)
	}

	// The banner must not leak into the first reply.
	reply, err := p.Send("anything")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply != "ok" {
		t.Errorf("reply = %q, want %q", reply, "ok")
	}
}

func TestStart_Twice(t *testing.T) {
	p := newEchoPipe(t)

	if err := p.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestSend_BeforeStart(t *testing.T) {
	p := New("/bin/sh", echoOracle, ">>", newTestLogger())

	if _, err := p.Send("hello"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Send() before Start error = %v, want ErrNotRunning", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	p := newEchoPipe(t)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if p.State() != StateDead {
		t.Errorf("State() = %v, want %v", p.State(), StateDead)
	}
	if _, err := p.Send("hello"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Send() after Close error = %v, want ErrNotRunning", err)
	}
}

// =============================================================================
// Turns
// =============================================================================

func TestSend_RoundTrip(t *testing.T) {
	p := newEchoPipe(t)

	reply, err := p.Send("hello oracle")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply != "reply: hello oracle" {
		t.Errorf("reply = %q, want %q", reply, "reply: hello oracle")
	}
}

func TestSend_SequentialTurns(t *testing.T) {
	p := newEchoPipe(t)

	for _, input := range []string{"first", "second", "third"} {
		reply, err := p.Send(input)
		if err != nil {
			t.Fatalf("Send(%q) error = %v", input, err)
		}
		want := "reply: " + input
		if reply != want {
			t.Errorf("Send(%q) = %q, want %q", input, reply, want)
		}
	}
}

func TestSend_MultiLineReply(t *testing.T) {
	script := `echo ">>"; while read line; do echo "alpha"; echo "beta"; echo ">>"; done`
	p := New("/bin/sh", script, ">>", newTestLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	reply, err := p.Send("go")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply != "alpha\nbeta" {
		t.Errorf("reply = %q, want %q", reply, "alpha\nbeta")
	}
}

func TestSend_StripsInlinePromptPrefix(t *testing.T) {
	// Consoles echo their prompt inline with the reply; the prefix must be
	// stripped so the caller sees only the payload.
	script := `echo ">>"; while read line; do echo ">> the answer"; echo ">>"; done`
	p := New("/bin/sh", script, ">>", newTestLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	reply, err := p.Send("question")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply != "the answer" {
		t.Errorf("reply = %q, want %q", reply, "the answer")
	}
}

func TestSend_ConcurrentCallersSerialize(t *testing.T) {
	p := newEchoPipe(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := p.Send("ping")
			if err != nil {
				errs <- err
				return
			}
			if reply != "reply: ping" {
				errs <- errors.New("interleaved reply: " + reply)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Send: %v", err)
	}
}

// =============================================================================
// Death Mid-Turn
// =============================================================================

func TestSend_ProcessDiesMidTurn(t *testing.T) {
	// The oracle exits after reading one line without printing the sentinel.
	script := `echo ">>"; read line; exit 0`
	p := New("/bin/sh", script, ">>", newTestLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	if _, err := p.Send("doom"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Send() error = %v, want ErrNotRunning", err)
	}
	if p.State() != StateDead {
		t.Errorf("State() = %v, want %v after mid-turn death", p.State(), StateDead)
	}

	// The pipe stays dead; further sends keep failing.
	if _, err := p.Send("again"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Send() on dead pipe error = %v, want ErrNotRunning", err)
	}
}

func TestStart_NeverPrintsSentinel(t *testing.T) {
	p := New("/bin/sh", "exit 0", ">>", newTestLogger())
	if err := p.Start(); err == nil {
		t.Fatal("Start() error = nil, want error when the sentinel never appears")
	}
	if p.State() != StateDead {
		t.Errorf("State() = %v, want %v", p.State(), StateDead)
	}
}

// =============================================================================
// State
// =============================================================================

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateNotStarted, "not_started"},
		{StateReady, "ready"},
		{StateBusy, "busy"},
		{StateDead, "dead"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
