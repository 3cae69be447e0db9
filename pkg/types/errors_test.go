package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFailKindOfUnwrapsFailureChains(t *testing.T) {
	inner := Fail(FailChainLoop, "https://ouo.io/a1", errors.New("revisited"))
	wrapped := fmt.Errorf("attempt 2: %w", inner)

	if got := FailKindOf(wrapped); got != FailChainLoop {
		t.Fatalf("kind = %s, want %s", got, FailChainLoop)
	}
	if FailKindOf(wrapped).Retriable() {
		t.Fatal("chain loop must not be retriable")
	}
}

func TestFailKindOfPlainErrorsAreTransient(t *testing.T) {
	kind := FailKindOf(errors.New("tab crashed"))
	if kind != FailNavigation {
		t.Fatalf("kind = %s, want %s", kind, FailNavigation)
	}
	if !kind.Retriable() {
		t.Fatal("unclassified errors must stay retriable")
	}
}

func TestRetriableTable(t *testing.T) {
	retriable := map[FailKind]bool{
		FailInvalidInput:    false,
		FailUnsupportedSite: false,
		FailNavigation:      true,
		FailNoCandidates:    true,
		FailChainLoop:       false,
		FailDepthExceeded:   false,
		FailMaxAttempts:     true,
		FailTimeout:         true,
		FailBotChallenge:    false,
		FailCancelled:       false,
	}
	for kind, want := range retriable {
		if got := kind.Retriable(); got != want {
			t.Errorf("%s.Retriable() = %v, want %v", kind, got, want)
		}
	}
}

func TestFailureErrorAndUnwrap(t *testing.T) {
	cause := errors.New("gate never opened")
	failure := Fail(FailMaxAttempts, "https://peliculasgd.net/x", cause)

	msg := failure.Error()
	for _, part := range []string{"https://peliculasgd.net/x", "MaxAttempts", "gate never opened"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message %q missing %q", msg, part)
		}
	}
	if !errors.Is(failure, cause) {
		t.Fatal("wrapped cause lost")
	}
}
