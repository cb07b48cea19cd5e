// Package attr holds the process-wide, immutable constant and attribute
// surface of the VISA object model: interface types, resource classes,
// access modes, event types, status codes and the attribute descriptor
// table. None of it is backend-specific; it is pure data, looked up by
// resources to drive get_attr/set_attr calls with compile-time-known ids.
package attr

// InterfaceType identifies the bus family of a resource.
type InterfaceType uint16

const (
	InterfaceGPIB InterfaceType = iota
	InterfaceVXI
	InterfaceGPIBVXI
	InterfaceASRL
	InterfacePXI
	InterfaceTCPIP
	InterfaceUSB
	InterfaceFirewire
	InterfaceVICP
	InterfaceUnknown
)

var interfaceNames = map[InterfaceType]string{
	InterfaceGPIB:     "GPIB",
	InterfaceVXI:      "VXI",
	InterfaceGPIBVXI:  "GPIB-VXI",
	InterfaceASRL:     "ASRL",
	InterfacePXI:      "PXI",
	InterfaceTCPIP:    "TCPIP",
	InterfaceUSB:      "USB",
	InterfaceFirewire: "FIREWIRE",
	InterfaceVICP:     "VICP",
	InterfaceUnknown:  "UNKNOWN",
}

func (i InterfaceType) String() string {
	if name, ok := interfaceNames[i]; ok {
		return name
	}
	return "UNKNOWN"
}

// interfaceTypeValues mirrors VISA's VI_INTF_* numeric constants. It is
// mutable at init time only through RegisterInterfaceType, since the VICP
// value was never pinned down by a published VISA standard; callers that
// need VICP to match a specific vendor's numbering can override it before
// first use.
var interfaceTypeValues = map[InterfaceType]uint16{
	InterfaceGPIB:     1,
	InterfaceVXI:      2,
	InterfaceGPIBVXI:  3,
	InterfaceASRL:     4,
	InterfacePXI:      5,
	InterfaceTCPIP:    6,
	InterfaceUSB:      7,
	InterfaceFirewire: 8,
	InterfaceVICP:     9, // placeholder; override with RegisterInterfaceType if needed
}

// InterfaceTypeValue returns the numeric VI_INTF_* value for an interface type.
func InterfaceTypeValue(i InterfaceType) uint16 {
	return interfaceTypeValues[i]
}

// RegisterInterfaceType overrides (or adds) the numeric value associated
// with an interface type. Intended for the VICP family, whose canonical
// value is vendor-defined rather than standardized.
func RegisterInterfaceType(i InterfaceType, value uint16) {
	interfaceTypeValues[i] = value
}

// ResourceClass identifies the resource-class suffix of a resource name.
type ResourceClass string

const (
	ClassINSTR     ResourceClass = "INSTR"
	ClassINTFC     ResourceClass = "INTFC"
	ClassBACKPLANE ResourceClass = "BACKPLANE"
	ClassMEMACC    ResourceClass = "MEMACC"
	ClassSERVANT   ResourceClass = "SERVANT"
	ClassSOCKET    ResourceClass = "SOCKET"
	ClassRAW       ResourceClass = "RAW"
)

// AccessMode controls how viOpen acquires a session.
type AccessMode uint32

const (
	AccessNoLock    AccessMode = 0
	AccessExclusive AccessMode = 1
	AccessShared    AccessMode = 2
)

// LockKind is the kind of cooperative lock requested through Resource.Lock.
type LockKind uint8

const (
	LockExclusive LockKind = iota
	LockShared
)

// EventType enumerates the asynchronous notifications a resource can enable.
type EventType uint32

const (
	EventIOCompletion EventType = iota
	EventTrigger
	EventServiceRequest
	EventClear
	EventException
	EventGPIBCIC
	EventGPIBTalk
	EventGPIBListen
	EventUsbInterrupt
	EventTCPIPConnect
	EventAll // wildcard used only with enable/disable, never reported on an event itself
)

// EventMechanism selects how an enabled event is delivered.
type EventMechanism uint8

const (
	MechanismQueue EventMechanism = iota
	MechanismHandler
	MechanismAll
)

// Parity, StopBits and the FlowControl bit-set describe ASRL (serial) line
// configuration, mirrored onto VI_ASRL_PAR_* / VI_ASRL_STOP_* / VI_ASRL_FLOW_*.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

type StopBits uint8

const (
	StopBitsOne StopBits = iota
	StopBitsOneAndHalf
	StopBitsTwo
)

type FlowControl uint8

const (
	FlowControlNone    FlowControl = 0
	FlowControlXonXoff FlowControl = 1 << 0
	FlowControlRTSCTS  FlowControl = 1 << 1
	FlowControlDTRDSR  FlowControl = 1 << 2
)

// EndInputPolicy controls whether a serial read terminates on the
// last-data-bit marker or on a termination character.
type EndInputPolicy uint8

const (
	EndInputTermChar EndInputPolicy = iota
	EndInputLastBit
)

// FlushMask selects which I/O buffers Resource.Flush discards, bit-combinable.
type FlushMask uint16

const (
	FlushReadBuf       FlushMask = 1 << 0
	FlushWriteBuf      FlushMask = 1 << 1
	FlushReadBufDiscard  FlushMask = 1 << 2
	FlushWriteBufDiscard FlushMask = 1 << 3
)

// Timeout sentinels, expressed in milliseconds at the public API boundary.
// TimeoutImmediate means "fail if not satisfiable right now";
// TimeoutInfinite means "never report Timeout".
const (
	TimeoutImmediate uint32 = 0
	TimeoutInfinite  uint32 = 0xFFFFFFFF
)

// NoSecondaryAddress is the sentinel VISA uses on the wire for an absent
// GPIB secondary address (VI_NO_SEC_ADDR).
const NoSecondaryAddress = 0xFFFF

// StatusCode is a raw VISA-numbered status/warning/error return value.
// The numbering intentionally matches the published VISA status space so
// diagnostics captured off the wire are directly comparable.
type StatusCode int32

const (
	StatusSuccess             StatusCode = 0
	StatusSuccessTermChar     StatusCode = 0x3FFF0004
	StatusSuccessMaxCount     StatusCode = 0x3FFF0005
	StatusSuccessDevNoPrefix  StatusCode = 0x3FFF0006

	ErrorInvObject    StatusCode = -1073807346
	ErrorTimeout      StatusCode = -1073807339
	ErrorResourceNotFound StatusCode = -1073807343
	ErrorResourceBusy StatusCode = -1073807345
	ErrorAccessDenied StatusCode = -1073807344
	ErrorInvExpr      StatusCode = -1073807330
	ErrorIO           StatusCode = -1073807298
)

// IsWarning reports whether a status code is a non-fatal "success with
// remark" code: warning class, non-error but noteworthy.
func (s StatusCode) IsWarning() bool {
	return s > 0
}

// IsError reports whether a status code represents a true failure.
func (s StatusCode) IsError() bool {
	return s < 0
}
