package nestorapi

import (
	"strings"
	"testing"
)

func TestEncodeStrings_Known(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "aGVsbG8"},
		{"hello 1\nhello 2", "aGVsbG8gMQpoZWxsbyAy"},
		{"", ""},
		// bytes 0xfb 0xff encode to "+/8" in the standard alphabet
		{"\xfb\xff", "-_8"},
	}
	for _, tt := range tests {
		if got := EncodeStrings(tt.in); got != tt.want {
			t.Errorf("EncodeStrings(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeStrings_NoPaddingOrStdAlphabet(t *testing.T) {
	for _, s := range []string{"a", "ab", "abc", "héllo wörld ✓", "??>>??>>"} {
		enc := EncodeStrings(s)
		if strings.ContainsAny(enc, "=+/") {
			t.Errorf("EncodeStrings(%q) = %q contains padding or std alphabet", s, enc)
		}
	}
}

func TestDecodeStrings_RoundTrip(t *testing.T) {
	for _, s := range []string{"hello", "hello 1\nhello 2", "", "日本語\nemoji 🎉", "a\n\nb"} {
		got, err := DecodeStrings(EncodeStrings(s))
		if err != nil {
			t.Fatalf("decode %q: %v", s, err)
		}
		if got != s {
			t.Errorf("round trip: got %q, want %q", got, s)
		}
	}
}

func TestDecodeStrings_AcceptsPadding(t *testing.T) {
	got, err := DecodeStrings("aGk=")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi" {
		t.Errorf("expected hi, got %q", got)
	}
}

func TestDecodeStrings_Invalid(t *testing.T) {
	if _, err := DecodeStrings("!!!"); err == nil {
		t.Error("expected error for invalid input")
	}
}
