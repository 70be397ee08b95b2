package apperror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestIs(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("fetch rates: %w", Wrap(Network, base, "ambito request failed"))

	if !Is(err, Network) {
		t.Error("expected NETWORK code in chain")
	}
	if Is(err, Parse) {
		t.Error("did not expect PARSE code in chain")
	}
	if !errors.Is(err, base) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}

func TestIs_Nested(t *testing.T) {
	inner := New(Parse, "bad header")
	outer := Wrap(RemoteStore, inner, "download dataset 5515")

	if !Is(outer, RemoteStore) || !Is(outer, Parse) {
		t.Error("expected both codes to be found")
	}
	code, ok := CodeOf(outer)
	if !ok || code != RemoteStore {
		t.Errorf("expected outer code REMOTE_STORE, got %s", code)
	}
}

func TestCodeOf_Plain(t *testing.T) {
	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Error("expected no code for plain error")
	}
}

func TestWithSnippet_Truncates(t *testing.T) {
	err := New(Parse, "unbalanced bracket").WithSnippet(strings.Repeat("x", 200))
	if len(err.Snippet()) != snippetLen+3 {
		t.Errorf("expected snippet of %d chars, got %d", snippetLen+3, len(err.Snippet()))
	}
	if !strings.Contains(err.Error(), "near") {
		t.Errorf("expected snippet in message, got %q", err.Error())
	}
}

func TestWithSnippet_KeepsRunes(t *testing.T) {
	// 79 ASCII bytes put the two-byte "ñ" across the cut.
	in := strings.Repeat("x", snippetLen-1) + strings.Repeat("ñ", 10)
	got := New(Parse, "bad cell").WithSnippet(in).Snippet()

	if !utf8.ValidString(got) {
		t.Fatalf("snippet is not valid UTF-8: %q", got)
	}
	want := strings.Repeat("x", snippetLen-1) + "..."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
