package rm

import (
	"context"
	"testing"
)

func TestOpenResourceOverSimulatedBackend(t *testing.T) {
	m, err := Open("sim", "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer m.Close()

	handle, rec, err := m.OpenResource(context.Background(), "GPIB0::3::INSTR", 0, 2000)
	if err != nil {
		t.Fatalf("OpenResource returned error: %v", err)
	}
	if rec.PrimaryAddress != 3 {
		t.Fatalf("unexpected parsed record: %+v", rec)
	}

	sess, err := m.Session(handle)
	if err != nil {
		t.Fatalf("Session returned error: %v", err)
	}
	n, err := sess.Write(context.Background(), []byte("*IDN?\n"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != len("*IDN?\n") {
		t.Fatalf("Write returned %d, want %d", n, len("*IDN?\n"))
	}

	if err := m.CloseResource(handle); err != nil {
		t.Fatalf("CloseResource returned error: %v", err)
	}
	if _, err := m.Session(handle); err == nil {
		t.Fatalf("expected an error addressing a closed handle")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("nonexistent", ""); err == nil {
		t.Fatalf("expected an error for an unregistered backend")
	}
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	m, err := Open("sim", "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("first Close returned error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if _, _, err := m.OpenResource(context.Background(), "GPIB0::3::INSTR", 0, 0); err != ErrClosed {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestListResourcesFiltersByExpr(t *testing.T) {
	m, err := Open("sim", "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer m.Close()

	if _, _, err := m.OpenResource(context.Background(), "GPIB0::3::INSTR", 0, 0); err != nil {
		t.Fatalf("OpenResource returned error: %v", err)
	}
	if _, _, err := m.OpenResource(context.Background(), "ASRL1::INSTR", 0, 0); err != nil {
		t.Fatalf("OpenResource returned error: %v", err)
	}

	all, err := m.ListResources(context.Background(), "")
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 resources, got %v", all)
	}

	gpibOnly, err := m.ListResources(context.Background(), "GPIB*")
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if len(gpibOnly) != 1 {
		t.Fatalf("expected 1 GPIB resource, got %v", gpibOnly)
	}
}

func TestManagersSharingLibraryPathShareOneBackend(t *testing.T) {
	a, err := Open("sim", "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer a.Close()

	b, err := Open("sim", "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer b.Close()

	if _, _, err := a.OpenResource(context.Background(), "GPIB0::3::INSTR", 0, 0); err != nil {
		t.Fatalf("OpenResource returned error: %v", err)
	}

	seenFromB, err := b.ListResources(context.Background(), "")
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if len(seenFromB) != 1 {
		t.Fatalf("expected the resource opened through a to be visible through b, got %v", seenFromB)
	}
}
