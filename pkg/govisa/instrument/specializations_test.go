package instrument

import (
	"context"
	"testing"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend/simulated"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

func openSimResource(t *testing.T, sim *simulated.Backend, resource string) *Resource {
	t.Helper()
	rec, err := rname.Parse(resource)
	if err != nil {
		t.Fatalf("rname.Parse(%q) returned error: %v", resource, err)
	}
	sess, err := sim.OpenSession(context.Background(), rec, attr.AccessNoLock, 2000)
	if err != nil {
		t.Fatalf("OpenSession returned error: %v", err)
	}
	return Open(rec, sess, 2000)
}

func TestGPIBInstrumentControls(t *testing.T) {
	sim := simulated.New()
	g := NewGPIBInstrument(openSimResource(t, sim, "GPIB0::3::INSTR"))

	if err := g.SetREN(true); err != nil {
		t.Fatalf("SetREN returned error: %v", err)
	}
	if err := g.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}
	if err := g.WaitForSRQ(context.Background(), 100); err != nil {
		t.Fatalf("WaitForSRQ returned error: %v", err)
	}
	if _, err := g.ReadStatusByteV2(context.Background()); err != nil {
		t.Fatalf("ReadStatusByteV2 returned error: %v", err)
	}
}

func TestGPIBInterfaceBusOperations(t *testing.T) {
	sim := simulated.New()
	iface := NewGPIBInterface(openSimResource(t, sim, "GPIB0::INTFC"))

	if err := iface.EnableRemote(context.Background(), []uint16{3, 5}); err != nil {
		t.Fatalf("EnableRemote returned error: %v", err)
	}
	if err := iface.GroupExecuteTrigger(context.Background(), []uint16{3, 5}); err != nil {
		t.Fatalf("GroupExecuteTrigger returned error: %v", err)
	}
	if err := iface.SendIFC(context.Background()); err != nil {
		t.Fatalf("SendIFC returned error: %v", err)
	}
}

func TestSerialInstrumentLineConfig(t *testing.T) {
	sim := simulated.New()
	s := NewSerialInstrument(openSimResource(t, sim, "ASRL1::INSTR"))

	if err := s.SetBaudRate(115200); err != nil {
		t.Fatalf("SetBaudRate returned error: %v", err)
	}
	if err := s.SetFrame(8, attr.StopBitsOne, attr.ParityNone); err != nil {
		t.Fatalf("SetFrame returned error: %v", err)
	}
	if err := s.SetFlowControl(attr.FlowControlRTSCTS); err != nil {
		t.Fatalf("SetFlowControl returned error: %v", err)
	}
}

func TestRegisterBasedMemoryRoundTrip(t *testing.T) {
	sim := simulated.New()
	r := NewRegisterBased(openSimResource(t, sim, "PXI0::MEMACC"))

	if err := r.WriteMemory(context.Background(), 0x10, 32, 0xDEADBEEF); err != nil {
		t.Fatalf("WriteMemory returned error: %v", err)
	}
	got, err := r.ReadMemory(context.Background(), 0x10, 32)
	if err != nil {
		t.Fatalf("ReadMemory returned error: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("ReadMemory = 0x%X, want 0xDEADBEEF", got)
	}

	if err := r.MoveOut(context.Background(), 0x100, 16, []uint64{1, 2, 3}); err != nil {
		t.Fatalf("MoveOut returned error: %v", err)
	}
	values, err := r.MoveIn(context.Background(), 0x100, 16, 3)
	if err != nil {
		t.Fatalf("MoveIn returned error: %v", err)
	}
	if len(values) != 3 || values[0] != 1 || values[1] != 2 || values[2] != 3 {
		t.Fatalf("MoveIn = %v, want [1 2 3]", values)
	}
}

func TestUSBInstrumentControlTransfers(t *testing.T) {
	sim := simulated.New()
	u := NewUSBInstrument(openSimResource(t, sim, "USB0::0x1234::0x5678::SN1::INSTR"))

	n, err := u.ControlOut(context.Background(), 0x21, 1, 0, 0, []byte{0x01})
	if err != nil {
		t.Fatalf("ControlOut returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("ControlOut = %d, want 1", n)
	}

	data, err := u.ControlIn(context.Background(), 0xA1, 2, 0, 0, 4)
	if err != nil {
		t.Fatalf("ControlIn returned error: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("ControlIn returned %d bytes, want 4", len(data))
	}
}
