package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := PreconditionFailed("deal %s has no scores", "d1")
	wrapped := fmt.Errorf("explain: %w", base)
	if got := KindOf(wrapped); got != KindPreconditionFailed {
		t.Fatalf("kind=%q", got)
	}
	if !Is(wrapped, KindPreconditionFailed) {
		t.Fatalf("Is=false")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain error should be unknown")
	}
	if Is(nil, KindNotFound) {
		t.Fatalf("nil should not match")
	}
}

func TestUpstream_ErrorString(t *testing.T) {
	err := Upstream(429, `{"error":"rate"}`, errors.New("boom"))
	if err.StatusCode != 429 || err.Body != `{"error":"rate"}` {
		t.Fatalf("err=%+v", err)
	}
	want := "upstream_error: completion service call failed (status 429): boom"
	if err.Error() != want {
		t.Fatalf("Error()=%q want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("unwrap lost cause")
	}
}
