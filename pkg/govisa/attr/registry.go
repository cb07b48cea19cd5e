package attr

import "fmt"

// Kind classifies the shape of an attribute's value.
type Kind uint8

const (
	KindScalar Kind = iota
	KindEnum
	KindFlags
	KindBytes
)

// Descriptor is the static, process-wide description of one VISA attribute.
// It never changes at runtime; resources use the Id field as a
// compile-time-known constant when calling get_attr/set_attr. Properties on
// resources are thin wrappers over this table, replacing runtime
// introspection with a static lookup.
type Descriptor struct {
	ID       uint32
	Name     string
	Readable bool
	Writable bool
	Kind     Kind
	Default  any
}

// Well-known attribute ids, numbered to match VISA's VI_ATTR_* constants
// so diagnostics captured off the wire are directly comparable.
const (
	AttrRsrcImplVersion   uint32 = 0x3FFF0003
	AttrSendEndEnabled    uint32 = 0x3FFF0016
	AttrTermChar          uint32 = 0x3FFF0018
	AttrTimeoutValue      uint32 = 0x3FFF001A
	AttrIOProtocol        uint32 = 0x3FFF001C
	AttrASRLBaud          uint32 = 0x3FFF0021
	AttrASRLDataBits      uint32 = 0x3FFF0022
	AttrASRLParity        uint32 = 0x3FFF0023
	AttrASRLStopBits      uint32 = 0x3FFF0024
	AttrASRLFlowCntrl     uint32 = 0x3FFF0025
	AttrSuppressEndEn     uint32 = 0x3FFF0036
	AttrTermCharEnabled   uint32 = 0x3FFF0038
	AttrASRLEndIn         uint32 = 0x3FFF00B3
	AttrRsrcSpecVersion   uint32 = 0x3FFF0170
	AttrGPIBPrimaryAddr   uint32 = 0x3FFF0172
	AttrGPIBSecondaryAddr uint32 = 0x3FFF0173
	AttrRsrcManfName      uint32 = 0xBFFF0174
	AttrGPIBRENState      uint32 = 0x3FFF0181
	AttrGPIBUnaddressed   uint32 = 0x3FFF0184
	AttrTCPIPAddr         uint32 = 0xBFFF0195
	AttrTCPIPPort         uint32 = 0x3FFF0197
	AttrTCPIPDeviceName   uint32 = 0xBFFF0199
	AttrUSBIntfcNum       uint32 = 0x3FFF01A1
	AttrASRLBreakState    uint32 = 0x3FFF01BC
	AttrASRLBreakLen      uint32 = 0x3FFF01BD
	AttrASRLXonChar       uint32 = 0x3FFF00C1
	AttrASRLXoffChar      uint32 = 0x3FFF00C2
)

var registry = map[uint32]Descriptor{
	AttrTimeoutValue:      {ID: AttrTimeoutValue, Name: "VI_ATTR_TMO_VALUE", Readable: true, Writable: true, Kind: KindScalar, Default: uint32(2000)},
	AttrTermChar:          {ID: AttrTermChar, Name: "VI_ATTR_TERMCHAR", Readable: true, Writable: true, Kind: KindScalar, Default: byte('\n')},
	AttrTermCharEnabled:   {ID: AttrTermCharEnabled, Name: "VI_ATTR_TERMCHAR_EN", Readable: true, Writable: true, Kind: KindScalar, Default: false},
	AttrSendEndEnabled:    {ID: AttrSendEndEnabled, Name: "VI_ATTR_SEND_END_EN", Readable: true, Writable: true, Kind: KindScalar, Default: true},
	AttrIOProtocol:        {ID: AttrIOProtocol, Name: "VI_ATTR_IO_PROT", Readable: true, Writable: true, Kind: KindEnum, Default: uint16(0)},
	AttrGPIBPrimaryAddr:   {ID: AttrGPIBPrimaryAddr, Name: "VI_ATTR_GPIB_PRIMARY_ADDR", Readable: true, Writable: false, Kind: KindScalar},
	AttrGPIBSecondaryAddr: {ID: AttrGPIBSecondaryAddr, Name: "VI_ATTR_GPIB_SECONDARY_ADDR", Readable: true, Writable: false, Kind: KindScalar, Default: uint16(NoSecondaryAddress)},
	AttrGPIBRENState:      {ID: AttrGPIBRENState, Name: "VI_ATTR_GPIB_REN_STATE", Readable: true, Writable: true, Kind: KindEnum},
	AttrGPIBUnaddressed:   {ID: AttrGPIBUnaddressed, Name: "VI_ATTR_GPIB_UNADDR_EN", Readable: true, Writable: true, Kind: KindScalar, Default: false},
	AttrASRLBaud:          {ID: AttrASRLBaud, Name: "VI_ATTR_ASRL_BAUD", Readable: true, Writable: true, Kind: KindScalar, Default: uint32(9600)},
	AttrASRLDataBits:      {ID: AttrASRLDataBits, Name: "VI_ATTR_ASRL_DATA_BITS", Readable: true, Writable: true, Kind: KindScalar, Default: uint8(8)},
	AttrASRLStopBits:      {ID: AttrASRLStopBits, Name: "VI_ATTR_ASRL_STOP_BITS", Readable: true, Writable: true, Kind: KindEnum, Default: StopBitsOne},
	AttrASRLParity:        {ID: AttrASRLParity, Name: "VI_ATTR_ASRL_PARITY", Readable: true, Writable: true, Kind: KindEnum, Default: ParityNone},
	AttrASRLFlowCntrl:     {ID: AttrASRLFlowCntrl, Name: "VI_ATTR_ASRL_FLOW_CNTRL", Readable: true, Writable: true, Kind: KindFlags, Default: FlowControlNone},
	AttrASRLEndIn:         {ID: AttrASRLEndIn, Name: "VI_ATTR_ASRL_END_IN", Readable: true, Writable: true, Kind: KindEnum, Default: EndInputTermChar},
	AttrASRLBreakLen:      {ID: AttrASRLBreakLen, Name: "VI_ATTR_ASRL_BREAK_LEN", Readable: true, Writable: true, Kind: KindScalar, Default: uint16(250)},
	AttrASRLBreakState:    {ID: AttrASRLBreakState, Name: "VI_ATTR_ASRL_BREAK_STATE", Readable: true, Writable: true, Kind: KindScalar, Default: false},
	AttrASRLXonChar:       {ID: AttrASRLXonChar, Name: "VI_ATTR_ASRL_XON_CHAR", Readable: true, Writable: true, Kind: KindScalar, Default: byte(0x11)},
	AttrASRLXoffChar:      {ID: AttrASRLXoffChar, Name: "VI_ATTR_ASRL_XOFF_CHAR", Readable: true, Writable: true, Kind: KindScalar, Default: byte(0x13)},
	AttrUSBIntfcNum:       {ID: AttrUSBIntfcNum, Name: "VI_ATTR_USB_INTFC_NUM", Readable: true, Writable: false, Kind: KindScalar},
	AttrTCPIPAddr:         {ID: AttrTCPIPAddr, Name: "VI_ATTR_TCPIP_ADDR", Readable: true, Writable: false, Kind: KindBytes},
	AttrTCPIPDeviceName:   {ID: AttrTCPIPDeviceName, Name: "VI_ATTR_TCPIP_DEVICE_NAME", Readable: true, Writable: false, Kind: KindBytes},
	AttrTCPIPPort:         {ID: AttrTCPIPPort, Name: "VI_ATTR_TCPIP_PORT", Readable: true, Writable: false, Kind: KindScalar},
	AttrRsrcManfName:      {ID: AttrRsrcManfName, Name: "VI_ATTR_RSRC_MANF_NAME", Readable: true, Writable: false, Kind: KindBytes},
	AttrRsrcImplVersion:   {ID: AttrRsrcImplVersion, Name: "VI_ATTR_RSRC_IMPL_VERSION", Readable: true, Writable: false, Kind: KindScalar},
	AttrRsrcSpecVersion:   {ID: AttrRsrcSpecVersion, Name: "VI_ATTR_RSRC_SPEC_VERSION", Readable: true, Writable: false, Kind: KindScalar},
	AttrSuppressEndEn:     {ID: AttrSuppressEndEn, Name: "VI_ATTR_SUPPRESS_END_EN", Readable: true, Writable: true, Kind: KindScalar, Default: false},
}

// ErrUnknownAttribute is returned by Lookup for an id not in the registry.
var ErrUnknownAttribute = fmt.Errorf("attr: unknown attribute id")

// Lookup returns the descriptor for a VISA attribute id.
func Lookup(id uint32) (Descriptor, error) {
	d, ok := registry[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: 0x%08X", ErrUnknownAttribute, id)
	}
	return d, nil
}

// All returns every registered descriptor, sorted by id is not guaranteed.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	return out
}
