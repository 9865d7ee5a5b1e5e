package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(StalePlan, "file changed since planning").WithFile("src/a.ts")

	msg := err.Error()
	if !strings.Contains(msg, "STALE_PLAN") {
		t.Errorf("message must carry the code: %q", msg)
	}
	if !strings.Contains(msg, "src/a.ts") {
		t.Errorf("message must carry the file: %q", msg)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(LspTransport, "server pipe closed", cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause must be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("message must include the cause: %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(New(AmbiguousSymbol, "x")) != AmbiguousSymbol {
		t.Error("CodeOf must return the RfxError code")
	}
	if CodeOf(stderrors.New("plain")) != InternalError {
		t.Error("non-RfxError must map to INTERNAL_ERROR")
	}

	// Code survives wrapping in a plain error
	inner := New(NameCollision, "taken")
	outer := Wrap(InternalError, "while planning", inner)
	// Outermost code wins
	if CodeOf(outer) != InternalError {
		t.Error("outermost code must win")
	}
	if !HasCode(stderrorsWrap(inner), NameCollision) {
		t.Error("code must be found through stdlib wrapping")
	}
}

func stderrorsWrap(err error) error {
	return &wrapped{err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "outer: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want bool
	}{
		{LspTimeout, true},
		{LspTransport, true},
		{LspServerRejected, false},
		{LspMethodNotFound, false},
		{StalePlan, false},
		{OverlappingEdits, false},
	}

	for _, tc := range cases {
		if got := IsRetryable(New(tc.code, "x")); got != tc.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
