package util

import "testing"

func TestNormalizeSpaces(t *testing.T) {
	if got := NormalizeSpaces("  a \t b\n c  "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	if got := NormalizeIdentifier("  00123 "); got != "00123" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeHeaderKey(t *testing.T) {
	if got := NormalizeHeaderKey(" PATIENT  ID "); got != "patient id" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
