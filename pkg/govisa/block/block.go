// Package block encodes and decodes the binary and ASCII value block
// formats instruments exchange over a message-based VISA session:
// IEEE-488.2 definite- and indefinite-length arbitrary blocks
// ("#<d><L><payload>" / "#0<payload>\n"), the legacy HP header with a
// two-byte little-endian length ("#A<lo><hi><payload>"), and comma-separated ASCII numeric
// streams.
package block

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DefaultScanWindow bounds how many leading bytes Decode inspects while
// looking for a block header before giving up. It is generous enough to
// skip a query echo or a short prefix some instruments prepend, without
// letting a malformed stream run Decode over the whole buffer. Overridable
// via DecodeOptions.ScanWindow.
const DefaultScanWindow = 25

// ErrNoHeader is returned when no recognizable block header is found
// within the scan window.
var ErrNoHeader = fmt.Errorf("block: no '#' header found within scan window")

// ErrTruncated is returned when the declared payload length exceeds what
// is actually available in the buffer.
var ErrTruncated = fmt.Errorf("block: payload shorter than declared length")

// ErrMalformedHeader is returned when a '#' is found but what follows it
// does not parse as a definite, indefinite or HP-style length field.
type ErrMalformedHeader struct {
	Reason string
}

func (e *ErrMalformedHeader) Error() string {
	return "block: malformed header: " + e.Reason
}

// HeaderFormat selects which block header style Decode expects.
type HeaderFormat uint8

const (
	// HeaderAuto locates a '#' and distinguishes IEEE-488.2 definite,
	// indefinite and legacy HP framing from the byte that follows it.
	HeaderAuto HeaderFormat = iota
	// HeaderIEEE forces the IEEE-488.2 "#<d><L>"/"#0" header.
	HeaderIEEE
	// HeaderHP forces the HP header with a two-byte length ("#A<lo><hi>").
	HeaderHP
	// HeaderEmpty means the stream carries no header at all: the entire
	// buffer is payload.
	HeaderEmpty
)

// DecodeOptions customizes Decode's header search.
type DecodeOptions struct {
	// ScanWindow bounds the prefix Decode searches for a '#'. Zero means
	// DefaultScanWindow.
	ScanWindow int
	// HeaderFmt selects the header style. The zero value, HeaderAuto,
	// reproduces the historical behavior of trying IEEE-488.2 framing
	// first and falling back to HP framing when the byte after '#' is
	// not a length digit.
	HeaderFmt HeaderFormat
}

// Decode locates a block header within data, and returns the raw payload
// bytes it encloses along with the number of bytes consumed from data
// (header + payload, but not any trailing terminator).
func Decode(data []byte, opts DecodeOptions) (payload []byte, consumed int, err error) {
	if opts.HeaderFmt == HeaderEmpty {
		return data, len(data), nil
	}

	window := opts.ScanWindow
	if window <= 0 {
		window = DefaultScanWindow
	}
	if window > len(data) {
		window = len(data)
	}

	hashPos := bytes.IndexByte(data[:window], '#')
	if hashPos < 0 {
		return nil, 0, ErrNoHeader
	}

	rest := data[hashPos+1:]
	if len(rest) == 0 {
		return nil, 0, &ErrMalformedHeader{Reason: "truncated after '#'"}
	}

	if opts.HeaderFmt == HeaderHP {
		return decodeHPHeader(data, hashPos, rest)
	}

	d := rest[0]
	switch {
	case d == '0':
		return decodeIndefinite(data, hashPos, rest[1:])
	case d >= '1' && d <= '9':
		return decodeDefinite(data, hashPos, rest[1:], int(d-'0'))
	case opts.HeaderFmt == HeaderIEEE:
		return nil, 0, &ErrMalformedHeader{Reason: fmt.Sprintf("expected an IEEE-488.2 length digit, got %q", d)}
	default:
		return decodeHPHeader(data, hashPos, rest)
	}
}

// decodeDefinite parses "#<d><L><payload>" where d (1-9) is the digit
// count of the ASCII decimal length field L.
func decodeDefinite(data []byte, hashPos int, rest []byte, digits int) ([]byte, int, error) {
	if len(rest) < digits {
		return nil, 0, &ErrMalformedHeader{Reason: "length field runs past end of buffer"}
	}
	lengthField := rest[:digits]
	n, err := strconv.Atoi(string(lengthField))
	if err != nil || n < 0 {
		return nil, 0, &ErrMalformedHeader{Reason: fmt.Sprintf("bad length field %q", lengthField)}
	}
	payloadStart := hashPos + 1 + 1 + digits
	if payloadStart+n > len(data) {
		return nil, 0, ErrTruncated
	}
	return data[payloadStart : payloadStart+n], payloadStart + n, nil
}

// decodeIndefinite parses "#0<payload><terminator>", where payload runs to
// the end of the supplied buffer (the caller is expected to have already
// delimited the message, e.g. on the instrument's termination character).
func decodeIndefinite(data []byte, hashPos int, rest []byte) ([]byte, int, error) {
	payloadStart := hashPos + 2
	end := len(data)
	for end > payloadStart && (data[end-1] == '\n' || data[end-1] == '\r') {
		end--
	}
	return data[payloadStart:end], end, nil
}

// decodeHPHeader parses the legacy HP "#A<lo><hi><payload>" form, where
// <lo><hi> is a little-endian 16-bit byte count following a single
// non-numeric marker byte (conventionally 'A').
func decodeHPHeader(data []byte, hashPos int, rest []byte) ([]byte, int, error) {
	if len(rest) < 3 {
		return nil, 0, &ErrMalformedHeader{Reason: "HP header runs past end of buffer"}
	}
	lo, hi := rest[1], rest[2]
	n := int(lo) | int(hi)<<8
	payloadStart := hashPos + 1 + 3
	if payloadStart+n > len(data) {
		return nil, 0, ErrTruncated
	}
	return data[payloadStart : payloadStart+n], payloadStart + n, nil
}

// EncodeDefinite wraps payload in an IEEE-488.2 definite-length block
// header, choosing the smallest digit count that fits len(payload). The
// digit count field is a single digit (1-9), so payloads up to 999,999,999
// bytes are supported; a longer payload returns an error.
func EncodeDefinite(payload []byte) ([]byte, error) {
	n := len(payload)
	lengthStr := strconv.Itoa(n)
	if len(lengthStr) > 9 {
		return nil, fmt.Errorf("block: payload length %d needs more than 9 digits", n)
	}
	var buf bytes.Buffer
	buf.WriteByte('#')
	buf.WriteByte(byte('0' + len(lengthStr)))
	buf.WriteString(lengthStr)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// EncodeIndefinite wraps payload in an IEEE-488.2 indefinite-length block
// header, terminated by term (conventionally '\n').
func EncodeIndefinite(payload []byte, term byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("#0")
	buf.Write(payload)
	buf.WriteByte(term)
	return buf.Bytes()
}

// ASCIIOptions customizes the ASCII value stream codec.
type ASCIIOptions struct {
	// Separator delimits fields. Empty means "," (the VISA default).
	Separator string
}

func (o ASCIIOptions) separator() string {
	if o.Separator == "" {
		return ","
	}
	return o.Separator
}

// DecodeASCIIValues splits an ASCII numeric stream into its fields per
// opts, trimming surrounding whitespace, any trailing termination
// character left over from the transport layer, and a single trailing
// separator with no field after it (a permissive parse of streams some
// instruments emit).
func DecodeASCIIValues(data []byte, opts ASCIIOptions) []string {
	sep := opts.separator()
	s := strings.TrimRight(string(data), "\r\n")
	s = strings.TrimSuffix(s, sep)
	if s == "" {
		return nil
	}
	fields := strings.Split(s, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// EncodeASCIIValues joins fields into an ASCII numeric stream, separated
// per opts and terminated by term.
func EncodeASCIIValues(fields []string, term byte, opts ASCIIOptions) []byte {
	s := strings.Join(fields, opts.separator())
	return append([]byte(s), term)
}
