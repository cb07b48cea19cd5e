package instrument

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/benchdrive/govisa/pkg/govisa/block"
)

// Datatype selects the element width, signedness and interpretation of a
// binary value block, matching the datatype codes VISA bindings expose for
// read_binary_values/write_binary_values: the fixed-width integers, the two
// floating-point widths, and the two opaque-byte forms ("s" and "p").
// Both opaque forms hand back the whole payload unparsed; no length prefix
// inside a "p" payload is read or removed.
type Datatype uint8

const (
	DatatypeInt8 Datatype = iota
	DatatypeUint8
	DatatypeInt16
	DatatypeUint16
	DatatypeInt32
	DatatypeUint32
	DatatypeInt64
	DatatypeUint64
	DatatypeFloat32
	DatatypeFloat64
	DatatypeString   // "s": the whole payload treated as one opaque byte string
	DatatypeRawBytes // "p": the whole payload treated as a raw byte slice
)

func (d Datatype) elementSize() int {
	switch d {
	case DatatypeInt8, DatatypeUint8:
		return 1
	case DatatypeInt16, DatatypeUint16:
		return 2
	case DatatypeInt32, DatatypeUint32, DatatypeFloat32:
		return 4
	case DatatypeInt64, DatatypeUint64, DatatypeFloat64:
		return 8
	default:
		return 1
	}
}

func (d Datatype) opaque() bool {
	return d == DatatypeString || d == DatatypeRawBytes
}

// ByteOrder selects the endianness binary block elements are packed with.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) impl() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// HeaderFormat re-exports block.HeaderFormat so callers of the values API
// don't need to import pkg/govisa/block directly to name a header style.
type HeaderFormat = block.HeaderFormat

const (
	HeaderAuto  = block.HeaderAuto
	HeaderIEEE  = block.HeaderIEEE
	HeaderHP    = block.HeaderHP
	HeaderEmpty = block.HeaderEmpty
)

// BinaryValuesOptions configures ReadBinaryValues, WriteBinaryValues and
// QueryBinaryValues. The zero value of Datatype is DatatypeInt8.
type BinaryValuesOptions struct {
	Datatype  Datatype
	ByteOrder ByteOrder    // default LittleEndian
	HeaderFmt HeaderFormat // default HeaderAuto on read, HeaderIEEE on write

	// SuppressTermination disables the read-side check that a termination
	// byte immediately follows the declared payload. VISA bindings call
	// the check's presence "expect_termination" and default it on; the
	// Go zero value here keeps that same default (false = expect it).
	SuppressTermination bool

	// DataPoints trims a numeric payload, whatever its header style, to
	// exactly DataPoints elements when it holds at least that many; a
	// shorter payload is left as it is. Zero means "use whatever the header
	// or stream delimited."
	DataPoints int

	// ChunkSize overrides the resource's configured chunk size for this
	// call's read loop. Zero means MessageBased.ChunkSize.
	ChunkSize int

	// Monitor, when set, is invoked after every backend read with the
	// number of bytes that read contributed.
	Monitor func(deltaBytes int)

	// Container builds the value returned to the caller from the decoded
	// numeric elements and the raw payload bytes. The default returns
	// values unchanged for numeric datatypes, the payload as a string for
	// DatatypeString, and the payload as a []byte for DatatypeRawBytes.
	Container func(values []float64, raw []byte, datatype Datatype) any
}

func (o BinaryValuesOptions) container(values []float64, raw []byte) any {
	if o.Container != nil {
		return o.Container(values, raw, o.Datatype)
	}
	switch o.Datatype {
	case DatatypeString:
		return string(raw)
	case DatatypeRawBytes:
		return append([]byte(nil), raw...)
	default:
		return values
	}
}

// WriteBinaryValues encodes values per opts, wraps the result in a block
// header (IEEE-488.2 by default), prepends header, and writes it.
func (m *MessageBased) WriteBinaryValues(ctx context.Context, header string, values []float64, opts BinaryValuesOptions) (int, error) {
	payload, err := encodeElements(opts.Datatype, opts.ByteOrder, values)
	if err != nil {
		return 0, err
	}

	var framed []byte
	switch opts.HeaderFmt {
	case block.HeaderEmpty:
		framed = payload
	case block.HeaderHP:
		if len(payload) > 0xFFFF {
			return 0, fmt.Errorf("instrument: HP block payload of %d bytes exceeds the 16-bit length field", len(payload))
		}
		framed = append([]byte{'#', 'A', byte(len(payload)), byte(len(payload) >> 8)}, payload...)
	default: // HeaderAuto, HeaderIEEE
		framed, err = block.EncodeDefinite(payload)
		if err != nil {
			return 0, err
		}
	}
	return m.Write(ctx, append([]byte(header), framed...))
}

// ReadBinaryValues reads a response, decodes its binary block per opts, and
// hands the result to opts.Container.
func (m *MessageBased) ReadBinaryValues(ctx context.Context, opts BinaryValuesOptions) (any, error) {
	data, err := m.readChunks(ctx, opts.ChunkSize, opts.Monitor)
	if err != nil {
		return nil, err
	}

	payload, consumed, err := block.Decode(data, block.DecodeOptions{HeaderFmt: opts.HeaderFmt})
	if err != nil {
		return nil, err
	}

	if opts.HeaderFmt != block.HeaderEmpty && !opts.SuppressTermination {
		if consumed >= len(data) {
			return nil, fmt.Errorf("instrument: binary block is missing its expected termination byte")
		}
		if len(m.ReadTermination) > 0 && data[consumed] != m.ReadTermination[len(m.ReadTermination)-1] {
			return nil, fmt.Errorf("instrument: binary block termination byte 0x%02X does not match the configured read termination", data[consumed])
		}
	}

	if opts.DataPoints > 0 && !opts.Datatype.opaque() {
		want := opts.DataPoints * opts.Datatype.elementSize()
		if want <= len(payload) {
			payload = payload[:want]
		}
	}

	if opts.Datatype.opaque() {
		return opts.container(nil, payload), nil
	}

	values, err := decodeElements(opts.Datatype, opts.ByteOrder, payload)
	if err != nil {
		return nil, err
	}
	return opts.container(values, payload), nil
}

// QueryBinaryValues writes cmd, waits QueryDelay if positive, then decodes
// the response with ReadBinaryValues.
func (m *MessageBased) QueryBinaryValues(ctx context.Context, cmd string, opts BinaryValuesOptions) (any, error) {
	if _, err := m.WriteString(ctx, cmd); err != nil {
		return nil, err
	}
	if err := m.waitQueryDelay(ctx); err != nil {
		return nil, err
	}
	return m.ReadBinaryValues(ctx, opts)
}

func (m *MessageBased) waitQueryDelay(ctx context.Context) error {
	if m.QueryDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.QueryDelay):
		return nil
	}
}

// readChunks reads chunkSize bytes at a time (defaulting to
// MessageBased.ChunkSize) until ReadTermination is seen or the backend
// signals end-of-message with a short read, invoking monitor after each
// backend read with the number of bytes it contributed.
func (m *MessageBased) readChunks(ctx context.Context, chunkSize int, monitor func(int)) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = m.chunkSize()
	}
	var out []byte
	for {
		chunk, err := m.Session.Read(ctx, chunkSize)
		if err != nil {
			return out, err
		}
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
		if monitor != nil {
			monitor(len(chunk))
		}
		if len(chunk) < chunkSize {
			break
		}
		if m.TermCharEnabled && len(m.ReadTermination) > 0 && bytes.Contains(out, m.ReadTermination) {
			break
		}
	}
	return out, nil
}

func encodeElements(dt Datatype, order ByteOrder, values []float64) ([]byte, error) {
	if dt.opaque() {
		return nil, fmt.Errorf("instrument: datatype %d does not encode from a numeric slice", dt)
	}
	size := dt.elementSize()
	bo := order.impl()
	out := make([]byte, 0, len(values)*size)
	for _, v := range values {
		buf := make([]byte, size)
		switch dt {
		case DatatypeInt8:
			buf[0] = byte(int8(v))
		case DatatypeUint8:
			buf[0] = byte(uint8(v))
		case DatatypeInt16:
			bo.PutUint16(buf, uint16(int16(v)))
		case DatatypeUint16:
			bo.PutUint16(buf, uint16(v))
		case DatatypeInt32:
			bo.PutUint32(buf, uint32(int32(v)))
		case DatatypeUint32:
			bo.PutUint32(buf, uint32(v))
		case DatatypeInt64:
			bo.PutUint64(buf, uint64(int64(v)))
		case DatatypeUint64:
			bo.PutUint64(buf, uint64(v))
		case DatatypeFloat32:
			bo.PutUint32(buf, math.Float32bits(float32(v)))
		case DatatypeFloat64:
			bo.PutUint64(buf, math.Float64bits(v))
		default:
			return nil, fmt.Errorf("instrument: unsupported binary datatype %d", dt)
		}
		out = append(out, buf...)
	}
	return out, nil
}

func decodeElements(dt Datatype, order ByteOrder, payload []byte) ([]float64, error) {
	size := dt.elementSize()
	if len(payload)%size != 0 {
		return nil, fmt.Errorf("instrument: payload length %d is not a multiple of element size %d", len(payload), size)
	}
	bo := order.impl()
	out := make([]float64, 0, len(payload)/size)
	for i := 0; i < len(payload); i += size {
		chunk := payload[i : i+size]
		switch dt {
		case DatatypeInt8:
			out = append(out, float64(int8(chunk[0])))
		case DatatypeUint8:
			out = append(out, float64(chunk[0]))
		case DatatypeInt16:
			out = append(out, float64(int16(bo.Uint16(chunk))))
		case DatatypeUint16:
			out = append(out, float64(bo.Uint16(chunk)))
		case DatatypeInt32:
			out = append(out, float64(int32(bo.Uint32(chunk))))
		case DatatypeUint32:
			out = append(out, float64(bo.Uint32(chunk)))
		case DatatypeInt64:
			out = append(out, float64(int64(bo.Uint64(chunk))))
		case DatatypeUint64:
			out = append(out, float64(bo.Uint64(chunk)))
		case DatatypeFloat32:
			out = append(out, float64(math.Float32frombits(bo.Uint32(chunk))))
		case DatatypeFloat64:
			out = append(out, math.Float64frombits(bo.Uint64(chunk)))
		default:
			return nil, fmt.Errorf("instrument: unsupported binary datatype %d", dt)
		}
	}
	return out, nil
}

// ASCIIValuesOptions configures ReadASCIIValues, WriteASCIIValues and
// QueryASCIIValues.
type ASCIIValuesOptions struct {
	// Separator delimits fields on the wire. Empty means "," (the VISA
	// default), with a trailing separator tolerated on read.
	Separator string

	// Format is the fmt verb used to render one value on write. Empty
	// means "%g".
	Format string

	// Converter turns one field into a value. Empty means
	// strconv.ParseFloat(field, 64).
	Converter func(field string) (float64, error)

	// Container builds the value returned to the caller from the
	// converted elements. Empty returns them unchanged as []float64.
	Container func(values []float64) any
}

func (o ASCIIValuesOptions) blockOptions() block.ASCIIOptions {
	return block.ASCIIOptions{Separator: o.Separator}
}

func (o ASCIIValuesOptions) separator() string {
	if o.Separator == "" {
		return ","
	}
	return o.Separator
}

func (o ASCIIValuesOptions) convert(field string) (float64, error) {
	if o.Converter != nil {
		return o.Converter(field)
	}
	return strconv.ParseFloat(field, 64)
}

func (o ASCIIValuesOptions) format(v float64) string {
	f := o.Format
	if f == "" {
		f = "%g"
	}
	return fmt.Sprintf(f, v)
}

func (o ASCIIValuesOptions) container(values []float64) any {
	if o.Container != nil {
		return o.Container(values)
	}
	return values
}

// WriteASCIIValues encodes values as an ASCII stream per opts, prefixed by
// header, terminated by m.WriteTermination.
func (m *MessageBased) WriteASCIIValues(ctx context.Context, header string, values []float64, opts ASCIIValuesOptions) (int, error) {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = opts.format(v)
	}
	joined := strings.Join(fields, opts.separator())
	return m.Write(ctx, append([]byte(header), joined...))
}

// ReadASCIIValues reads and parses an ASCII numeric response per opts,
// handing the result to opts.Container.
func (m *MessageBased) ReadASCIIValues(ctx context.Context, opts ASCIIValuesOptions) (any, error) {
	data, err := m.ReadBytes(ctx, 0)
	if err != nil {
		return nil, err
	}
	fields := block.DecodeASCIIValues(data, opts.blockOptions())
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := opts.convert(f)
		if err != nil {
			return nil, fmt.Errorf("instrument: field %d (%q) is not numeric: %w", i, f, err)
		}
		values[i] = v
	}
	return opts.container(values), nil
}

// QueryASCIIValues writes cmd, waits QueryDelay if positive, then parses the
// response with ReadASCIIValues.
func (m *MessageBased) QueryASCIIValues(ctx context.Context, cmd string, opts ASCIIValuesOptions) (any, error) {
	if _, err := m.WriteString(ctx, cmd); err != nil {
		return nil, err
	}
	if err := m.waitQueryDelay(ctx); err != nil {
		return nil, err
	}
	return m.ReadASCIIValues(ctx, opts)
}
