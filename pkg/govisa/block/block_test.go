package block

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecodeDefinite(t *testing.T) {
	data := []byte("#212345678901234\n")
	payload, consumed, err := Decode(data, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if string(payload) != "345678901234" {
		t.Fatalf("payload = %q, want 345678901234", payload)
	}
	if consumed != len(data)-1 {
		t.Fatalf("consumed = %d, want %d", consumed, len(data)-1)
	}
}

func TestDecodeDefiniteWithEcho(t *testing.T) {
	data := append([]byte("CURV "), []byte("#15ABCDE")...)
	payload, _, err := Decode(data, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if string(payload) != "ABCDE" {
		t.Fatalf("payload = %q, want ABCDE", payload)
	}
}

func TestDecodeIndefinite(t *testing.T) {
	data := []byte("#0hello world\n")
	payload, consumed, err := Decode(data, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if string(payload) != "hello world" {
		t.Fatalf("payload = %q, want %q", payload, "hello world")
	}
	if consumed != len(data)-1 {
		t.Fatalf("consumed = %d, want %d", consumed, len(data)-1)
	}
}

func TestDecodeHPHeader(t *testing.T) {
	payload := []byte("ABCD")
	data := append([]byte{'#', 'A', 4, 0}, payload...)
	got, _, err := Decode(data, DecodeOptions{HeaderFmt: HeaderHP})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %X, want %X", got, payload)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := []byte("#210abc")
	if _, _, err := Decode(data, DecodeOptions{}); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeNoHeader(t *testing.T) {
	window := make([]byte, DefaultScanWindow+5)
	for i := range window {
		window[i] = 'x'
	}
	if _, _, err := Decode(window, DecodeOptions{}); err != ErrNoHeader {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func TestDecodeHeaderBeyondScanWindow(t *testing.T) {
	prefix := strings.Repeat("x", DefaultScanWindow+1)
	data := []byte(prefix + "#15hello")
	if _, _, err := Decode(data, DecodeOptions{}); err != ErrNoHeader {
		t.Fatalf("expected ErrNoHeader when '#' is outside the scan window, got %v", err)
	}

	wide, _, err := Decode(data, DecodeOptions{ScanWindow: len(data)})
	_ = wide
	if err != nil {
		t.Fatalf("expected a widened scan window to find the header, got %v", err)
	}
}

func TestEncodeDefiniteRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1<<16)
	encoded, err := EncodeDefinite(payload)
	if err != nil {
		t.Fatalf("EncodeDefinite returned error: %v", err)
	}
	decoded, _, err := Decode(encoded, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("round-trip mismatch: got %d bytes, want %d", len(decoded), len(payload))
	}
}

func TestASCIIValues(t *testing.T) {
	encoded := EncodeASCIIValues([]string{"1.0", "2.5", "-3"}, '\n', ASCIIOptions{})
	fields := DecodeASCIIValues(encoded, ASCIIOptions{})
	if len(fields) != 3 || fields[0] != "1.0" || fields[1] != "2.5" || fields[2] != "-3" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestASCIIValuesCustomSeparatorAndTrailer(t *testing.T) {
	opts := ASCIIOptions{Separator: ";"}
	encoded := EncodeASCIIValues([]string{"1", "2", "3"}, '\n', opts)
	fields := DecodeASCIIValues(encoded, opts)
	if len(fields) != 3 || fields[0] != "1" || fields[1] != "2" || fields[2] != "3" {
		t.Fatalf("unexpected fields: %v", fields)
	}

	trailing := DecodeASCIIValues([]byte("1;2;3;\n"), opts)
	if len(trailing) != 3 || trailing[2] != "3" {
		t.Fatalf("expected a trailing separator to be tolerated, got %v", trailing)
	}
}
