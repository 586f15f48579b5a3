package input

import (
	"io"
	"strings"
	"testing"
)

func TestSecretThenLinesOrdering(t *testing.T) {
	src := NewSource(strings.NewReader("hunter2\ngetblockcount\nuptime\n"))

	secret, err := src.ReadSecretLine()
	if err != nil {
		t.Fatalf("ReadSecretLine: %v", err)
	}
	if secret != "hunter2" {
		t.Fatalf("secret = %q, want hunter2", secret)
	}

	for i, want := range []string{"getblockcount", "uptime"} {
		line, err := src.NextLine()
		if err != nil {
			t.Fatalf("NextLine %d: %v", i, err)
		}
		if line != want {
			t.Fatalf("line %d = %q, want %q", i, line, want)
		}
	}
	if _, err := src.NextLine(); err != io.EOF {
		t.Fatalf("expected io.EOF after last line, got %v", err)
	}
}

func TestSecretOnEmptyInputIsEOF(t *testing.T) {
	src := NewSource(strings.NewReader(""))
	if _, err := src.ReadSecretLine(); err != io.EOF {
		t.Fatalf("expected io.EOF for empty input, got %v", err)
	}
}

func TestSecretEmptyLineIsEmptySecret(t *testing.T) {
	src := NewSource(strings.NewReader("\ngetblockcount\n"))
	secret, err := src.ReadSecretLine()
	if err != nil {
		t.Fatalf("ReadSecretLine: %v", err)
	}
	if secret != "" {
		t.Fatalf("secret = %q, want empty", secret)
	}
	line, err := src.NextLine()
	if err != nil || line != "getblockcount" {
		t.Fatalf("NextLine = %q/%v, want getblockcount", line, err)
	}
}

func TestCarriageReturnTrimmed(t *testing.T) {
	src := NewSource(strings.NewReader("pass\r\ngetblockcount\r\n"))
	secret, err := src.ReadSecretLine()
	if err != nil {
		t.Fatalf("ReadSecretLine: %v", err)
	}
	if secret != "pass" {
		t.Fatalf("secret = %q, want pass", secret)
	}
	line, err := src.NextLine()
	if err != nil {
		t.Fatalf("NextLine: %v", err)
	}
	if line != "getblockcount" {
		t.Fatalf("line = %q, want getblockcount", line)
	}
}

func TestFinalLineWithoutNewline(t *testing.T) {
	src := NewSource(strings.NewReader("getblockcount"))
	line, err := src.NextLine()
	if err != nil {
		t.Fatalf("NextLine: %v", err)
	}
	if line != "getblockcount" {
		t.Fatalf("line = %q, want getblockcount", line)
	}
	if _, err := src.NextLine(); err != io.EOF {
		t.Fatalf("expected io.EOF at end, got %v", err)
	}
}
