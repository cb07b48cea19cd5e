package instrument

import (
	"context"
	"testing"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend/simulated"
	"github.com/benchdrive/govisa/pkg/govisa/block"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

func openSim(t *testing.T, sim *simulated.Backend, resource string) *MessageBased {
	t.Helper()
	rec, err := rname.Parse(resource)
	if err != nil {
		t.Fatalf("rname.Parse(%q) returned error: %v", resource, err)
	}
	sess, err := sim.OpenSession(context.Background(), rec, attr.AccessNoLock, 2000)
	if err != nil {
		t.Fatalf("OpenSession returned error: %v", err)
	}
	return NewMessageBased(Open(rec, sess, 2000))
}

func TestQueryRoundTrip(t *testing.T) {
	sim := simulated.New()
	sim.OnWrite = func(resource string, data []byte) (int, error) {
		if string(data) == "*IDN?\n" {
			sim.Seed(resource, []byte("ACME,MODEL1,SN1,1.0\n"))
		}
		return len(data), nil
	}

	mb := openSim(t, sim, "GPIB0::3::INSTR")
	resp, err := mb.Query(context.Background(), "*IDN?")
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if resp != "ACME,MODEL1,SN1,1.0" {
		t.Fatalf("Query = %q, want trimmed IDN response", resp)
	}
}

func TestBinaryValuesRoundTrip(t *testing.T) {
	sim := simulated.New()
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	values := []float64{1.5, -2.25, 3.0, 0}
	opts := BinaryValuesOptions{Datatype: DatatypeFloat32}

	var written []byte
	sim.OnWrite = func(resource string, data []byte) (int, error) {
		written = append([]byte(nil), data...)
		return len(data), nil
	}
	if _, err := mb.WriteBinaryValues(context.Background(), "CURVE ", values, opts); err != nil {
		t.Fatalf("WriteBinaryValues returned error: %v", err)
	}

	sim.Seed("GPIB0::3::INSTR", written[len("CURVE "):])
	result, err := mb.ReadBinaryValues(context.Background(), opts)
	if err != nil {
		t.Fatalf("ReadBinaryValues returned error: %v", err)
	}
	got, ok := result.([]float64)
	if !ok {
		t.Fatalf("ReadBinaryValues returned %T, want []float64", result)
	}
	if len(got) != len(values) {
		t.Fatalf("got %d values, want %d", len(got), len(values))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], values[i])
		}
	}
}

func TestBinaryValuesBigEndianAndDataPoints(t *testing.T) {
	sim := simulated.New()
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	values := []float64{10, 20, 30}
	opts := BinaryValuesOptions{Datatype: DatatypeInt32, ByteOrder: BigEndian}

	var written []byte
	sim.OnWrite = func(resource string, data []byte) (int, error) {
		written = append([]byte(nil), data...)
		return len(data), nil
	}
	if _, err := mb.WriteBinaryValues(context.Background(), "", values, opts); err != nil {
		t.Fatalf("WriteBinaryValues returned error: %v", err)
	}

	sim.Seed("GPIB0::3::INSTR", written)
	opts.DataPoints = 2
	result, err := mb.ReadBinaryValues(context.Background(), opts)
	if err != nil {
		t.Fatalf("ReadBinaryValues returned error: %v", err)
	}
	got := result.([]float64)
	if len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Fatalf("got %v, want first two of %v", got, values)
	}
}

func TestBinaryValuesHeaderEmpty(t *testing.T) {
	sim := simulated.New()
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	sim.Seed("GPIB0::3::INSTR", []byte{0x01, 0x00, 0x02, 0x00})
	opts := BinaryValuesOptions{Datatype: DatatypeInt16, HeaderFmt: HeaderEmpty}
	result, err := mb.ReadBinaryValues(context.Background(), opts)
	if err != nil {
		t.Fatalf("ReadBinaryValues returned error: %v", err)
	}
	got := result.([]float64)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
}

func TestQueryBinaryValuesString(t *testing.T) {
	sim := simulated.New()
	sim.OnWrite = func(resource string, data []byte) (int, error) {
		if string(data) == "CURVE?\n" {
			payload, _ := block.EncodeDefinite([]byte("hello"))
			sim.Seed(resource, append(payload, '\n'))
		}
		return len(data), nil
	}
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	result, err := mb.QueryBinaryValues(context.Background(), "CURVE?", BinaryValuesOptions{Datatype: DatatypeString})
	if err != nil {
		t.Fatalf("QueryBinaryValues returned error: %v", err)
	}
	if result.(string) != "hello" {
		t.Fatalf("got %v, want hello", result)
	}
}

func TestASCIIValuesRoundTrip(t *testing.T) {
	sim := simulated.New()
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	sim.Seed("GPIB0::3::INSTR", []byte("1,2.5,-3\n"))
	result, err := mb.ReadASCIIValues(context.Background(), ASCIIValuesOptions{})
	if err != nil {
		t.Fatalf("ReadASCIIValues returned error: %v", err)
	}
	got := result.([]float64)
	want := []float64{1, 2.5, -3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestASCIIValuesCustomSeparatorConverterContainer(t *testing.T) {
	sim := simulated.New()
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	sim.Seed("GPIB0::3::INSTR", []byte("1;2;3;\n"))
	opts := ASCIIValuesOptions{
		Separator: ";",
		Container: func(values []float64) any {
			out := make([]int, len(values))
			for i, v := range values {
				out[i] = int(v)
			}
			return out
		},
	}
	result, err := mb.ReadASCIIValues(context.Background(), opts)
	if err != nil {
		t.Fatalf("ReadASCIIValues returned error: %v", err)
	}
	got := result.([]int)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
}

func TestLockReleaseIsIdempotent(t *testing.T) {
	sim := simulated.New()
	mb := openSim(t, sim, "GPIB0::3::INSTR")

	rel, err := mb.Lock(attr.LockExclusive, 1000, "")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if err := rel.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := rel.Release(); err != nil {
		t.Fatalf("second Release returned error: %v", err)
	}
}
