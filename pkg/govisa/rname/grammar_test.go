package rname

import (
	"testing"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
)

func roundTrip(t *testing.T, input string) Record {
	t.Helper()
	rec, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", input, err)
	}
	rendered := Render(rec)
	rec2, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse(%q) (rendered from %q) returned error: %v", rendered, input, err)
	}
	if !rec.Equal(rec2) {
		t.Fatalf("round-trip mismatch for %q: %+v rendered as %q parsed back as %+v", input, rec, rendered, rec2)
	}
	return rec
}

func TestGPIBInstr(t *testing.T) {
	rec := roundTrip(t, "GPIB0::3::INSTR")
	if rec.InterfaceType != attr.InterfaceGPIB || rec.ResourceClass != attr.ClassINSTR {
		t.Fatalf("unexpected interface/class: %+v", rec)
	}
	if rec.PrimaryAddress != 3 || rec.SecondaryAddress != NoSecondaryAddress {
		t.Fatalf("unexpected addresses: %+v", rec)
	}

	rec = roundTrip(t, "gpib0::3::5::instr")
	if rec.SecondaryAddress != 5 {
		t.Fatalf("expected secondary address 5, got %+v", rec)
	}

	if _, err := Parse("GPIB::31::INSTR"); err == nil {
		t.Fatalf("expected primary address 31 to be rejected")
	}
	roundTrip(t, "GPIB::30::INSTR")
}

func TestGPIBIntfc(t *testing.T) {
	rec := roundTrip(t, "GPIB0::INTFC")
	if rec.ResourceClass != attr.ClassINTFC {
		t.Fatalf("expected INTFC, got %+v", rec)
	}
}

func TestASRLInstr(t *testing.T) {
	rec := roundTrip(t, "ASRL1::INSTR")
	if rec.Board != 1 {
		t.Fatalf("unexpected board: %+v", rec)
	}

	rec, err := Parse("COM3")
	if err != nil {
		t.Fatalf("Parse(COM3) returned error: %v", err)
	}
	if rec.InterfaceType != attr.InterfaceASRL || rec.BoardAlias != "COM3" {
		t.Fatalf("unexpected alias record: %+v", rec)
	}
	if got := Render(rec); got != "COM3" {
		t.Fatalf("Render(alias) = %q, want COM3", got)
	}
}

func TestTCPIPInstrAndSocket(t *testing.T) {
	rec := roundTrip(t, "TCPIP::192.168.1.1::INSTR")
	if rec.LANDeviceName != "inst0" {
		t.Fatalf("expected default LAN device name inst0, got %+v", rec)
	}

	rec = roundTrip(t, "TCPIP0::192.168.1.1::inst1::INSTR")
	if rec.LANDeviceName != "inst1" {
		t.Fatalf("expected inst1, got %+v", rec)
	}

	rec = roundTrip(t, "TCPIP0::192.168.1.1::5025::SOCKET")
	if rec.ResourceClass != attr.ClassSOCKET || rec.Port != 5025 {
		t.Fatalf("unexpected socket record: %+v", rec)
	}

	if _, err := Parse("TCPIP::192.168.1.1::SOCKET"); err == nil {
		t.Fatalf("expected SOCKET without a port to fail")
	}
}

func TestVICPInstr(t *testing.T) {
	rec := roundTrip(t, "VICP0::192.168.1.50::INSTR")
	if rec.Host != "192.168.1.50" {
		t.Fatalf("unexpected host: %+v", rec)
	}
}

func TestUSBInstrAndRaw(t *testing.T) {
	rec := roundTrip(t, "USB0::0x0957::0x0588::MY12345::INSTR")
	if rec.ManufacturerID != 0x0957 || rec.ModelCode != 0x0588 || rec.SerialNumber != "MY12345" {
		t.Fatalf("unexpected USB record: %+v", rec)
	}
	if rec.USBInterfaceSet {
		t.Fatalf("expected no interface number set: %+v", rec)
	}

	rec = roundTrip(t, "USB0::0x0957::0x0588::MY12345::0::RAW")
	if rec.ResourceClass != attr.ClassRAW || !rec.USBInterfaceSet || rec.USBInterfaceNumber != 0 {
		t.Fatalf("unexpected USB RAW record: %+v", rec)
	}
}

func TestPXIForms(t *testing.T) {
	rec := roundTrip(t, "PXI1::2::INSTR")
	if rec.PXIForm != PXIFormBusDevice || rec.Board != 1 || rec.PXIDevice != 2 {
		t.Fatalf("unexpected bus-device record: %+v", rec)
	}

	rec = roundTrip(t, "PXI1::5-2.1::INSTR")
	if rec.PXIForm != PXIFormBusDeviceHyphen || rec.PXIBus != 5 || rec.PXIDevice != 2 || rec.PXIFunction != 1 {
		t.Fatalf("unexpected hyphen-form record: %+v", rec)
	}

	rec = roundTrip(t, "PXI1::CHASSIS2::SLOT3::INSTR")
	if rec.PXIForm != PXIFormChassisSlot || rec.PXIChassis != 2 || rec.PXISlot != 3 {
		t.Fatalf("unexpected chassis-slot record: %+v", rec)
	}

	rec = roundTrip(t, "PXI0::BACKPLANE")
	if rec.ResourceClass != attr.ClassBACKPLANE {
		t.Fatalf("expected BACKPLANE, got %+v", rec)
	}

	rec = roundTrip(t, "PXI::MEMACC")
	if rec.ResourceClass != attr.ClassMEMACC {
		t.Fatalf("expected MEMACC, got %+v", rec)
	}

	rec = roundTrip(t, "PXI2::MEMACC")
	if rec.Board != 2 {
		t.Fatalf("expected board 2 to survive the round trip, got %+v", rec)
	}

	rec = roundTrip(t, "PXI1::5::BACKPLANE")
	if rec.Board != 1 || rec.PXIChassis != 5 {
		t.Fatalf("unexpected two-field backplane record: %+v", rec)
	}
}

func TestVXIForms(t *testing.T) {
	rec := roundTrip(t, "VXI0::1::INSTR")
	if rec.VXILogicalAddress != 1 || !rec.VXIHasLA {
		t.Fatalf("unexpected VXI record: %+v", rec)
	}

	rec = roundTrip(t, "VXI0::BACKPLANE")
	if rec.ResourceClass != attr.ClassBACKPLANE {
		t.Fatalf("expected BACKPLANE, got %+v", rec)
	}

	rec = roundTrip(t, "VXI::SERVANT")
	if rec.ResourceClass != attr.ClassSERVANT {
		t.Fatalf("expected SERVANT, got %+v", rec)
	}

	rec = roundTrip(t, "VXI1::5::BACKPLANE")
	if rec.Board != 1 || rec.VXILogicalAddress != 5 {
		t.Fatalf("unexpected two-field backplane record: %+v", rec)
	}

	rec = roundTrip(t, "VXI3::MEMACC")
	if rec.Board != 3 {
		t.Fatalf("expected board 3 to survive the round trip, got %+v", rec)
	}

	if _, err := Parse("VXI0::INSTR"); err == nil {
		t.Fatalf("expected VXI::INSTR without a logical address to fail")
	}
}

func TestRemoteResource(t *testing.T) {
	rec, err := Parse("visa://remotehost:7000/GPIB0::3::INSTR")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if rec.RemoteHost != "REMOTEHOST" && rec.RemoteHost != "remotehost" {
		t.Fatalf("unexpected remote host: %+v", rec)
	}
	if rec.RemotePort != 7000 || rec.Remote == nil {
		t.Fatalf("unexpected remote record: %+v", rec)
	}
	if rec.Remote.PrimaryAddress != 3 {
		t.Fatalf("unexpected nested record: %+v", rec.Remote)
	}

	rendered := Render(rec)
	rec2, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", rendered, err)
	}
	if !rec.Equal(rec2) {
		t.Fatalf("round-trip mismatch: %+v vs %+v", rec, rec2)
	}

	if _, err := Parse("visa://remotehost"); err == nil {
		t.Fatalf("expected missing remote resource to fail")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected empty input to fail")
	}
	if _, err := Parse("NOTAREALBUS0::INSTR"); err == nil {
		t.Fatalf("expected unknown interface type to fail")
	}
	var perr *ParseError
	_, err := Parse("bogus")
	if err == nil {
		t.Fatalf("expected error for bogus input")
	}
	if pe, ok := err.(*ParseError); ok {
		perr = pe
	}
	if perr == nil {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
}

func TestFilter(t *testing.T) {
	resources := []string{
		"GPIB0::3::INSTR",
		"GPIB0::4::INSTR",
		"ASRL1::INSTR",
		"USB0::0x0957::0x0588::MY12345::INSTR",
	}

	matches, err := Filter(resources, "GPIB?*")
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 GPIB matches, got %v", matches)
	}

	matches, err = Filter(resources, "?SRL*")
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(matches) != 1 || matches[0] != "ASRL1::INSTR" {
		t.Fatalf("expected ASRL1::INSTR, got %v", matches)
	}

	matches, err = Filter(resources, "*")
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(matches) != len(resources) {
		t.Fatalf("expected all resources to match '*', got %v", matches)
	}
}
