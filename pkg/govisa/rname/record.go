// Package rname parses, validates and renders VISA resource names: the
// case-insensitive colon-delimited strings ("GPIB0::3::INSTR",
// "TCPIP0::1.2.3.4::INSTR", ...) that identify a bus resource. Parsing
// produces a tagged Record; rendering a Record always yields a string that
// re-parses to an equal Record, verified in grammar_test.go.
package rname

import "github.com/benchdrive/govisa/pkg/govisa/attr"

// NoSecondaryAddress marks an absent GPIB secondary address in a Record. It
// is distinct from the wire-level sentinel attr.NoSecondaryAddress, which is
// only materialized at the backend boundary.
const NoSecondaryAddress = -1

// Record is the parsed, canonicalized form of a resource name. Only the
// fields relevant to InterfaceType/ResourceClass are meaningful; the zero
// value of an unused field is never inspected.
type Record struct {
	Raw           string // the exact string that was parsed, before canonicalization
	InterfaceType attr.InterfaceType
	ResourceClass attr.ResourceClass

	Board      int    // numeric board/interface number
	BoardAlias string // non-numeric board identifier (e.g. ASRL device path); Board is ignored when set

	// GPIB::INSTR / GPIB::INTFC
	PrimaryAddress   int
	SecondaryAddress int // NoSecondaryAddress when absent

	// TCPIP::INSTR / TCPIP::SOCKET / VICP::INSTR
	Host          string
	LANDeviceName string
	Port          int

	// USB::INSTR / USB::RAW
	ManufacturerID     uint16
	ModelCode          uint16
	SerialNumber       string
	USBInterfaceNumber int
	USBInterfaceSet    bool

	// PXI
	PXIBus      int
	PXIDevice   int
	PXIFunction int
	PXIChassis  int
	PXISlot     int
	PXIForm     PXIForm

	// VXI
	VXILogicalAddress int
	VXIHasLA          bool

	// visa://host[:port]/remote_resource
	RemoteHost string
	RemotePort int
	Remote     *Record
}

// PXIForm distinguishes the mutually exclusive PXI addressing syntaxes
// ("PXI<board>::<device>[::<function>]", "PXI::<bus>-<device>.<function>",
// "PXI::CHASSISn::SLOTm") since they render differently.
type PXIForm uint8

const (
	PXIFormBusDevice PXIForm = iota
	PXIFormBusDeviceHyphen
	PXIFormChassisSlot
)

// Equal reports whether two records describe the same resource, ignoring
// Raw (which only records what the user originally typed).
func (r Record) Equal(o Record) bool {
	rRemote, oRemote := r.Remote, o.Remote
	r.Raw, o.Raw = "", ""
	r.Remote, o.Remote = nil, nil
	if r != o {
		return false
	}
	if (rRemote == nil) != (oRemote == nil) {
		return false
	}
	if rRemote == nil {
		return true
	}
	return rRemote.Equal(*oRemote)
}
