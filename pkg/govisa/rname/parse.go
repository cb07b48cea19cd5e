package rname

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
)

var prefixes = []struct {
	token string
	iface attr.InterfaceType
}{
	{"ASRL", attr.InterfaceASRL},
	{"GPIB", attr.InterfaceGPIB},
	{"TCPIP", attr.InterfaceTCPIP},
	{"VICP", attr.InterfaceVICP},
	{"USB", attr.InterfaceUSB},
	{"PXI", attr.InterfacePXI},
	{"VXI", attr.InterfaceVXI},
}

var comLptAlias = regexp.MustCompile(`(?i)^(COM|LPT)([0-9]+)$`)

// Parse parses a resource name string into a Record. It is case-insensitive
// and reports a *ParseError naming the offending position when the string
// does not fit the grammar.
func Parse(input string) (Record, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Record{}, parseErr(input, 0, "empty resource name")
	}

	if m := comLptAlias.FindStringSubmatch(trimmed); m != nil {
		return Record{
			Raw:           input,
			InterfaceType: attr.InterfaceASRL,
			ResourceClass: attr.ClassINSTR,
			BoardAlias:    strings.ToUpper(trimmed),
		}, nil
	}

	if rec, ok, err := tryParseRemote(input, trimmed); ok || err != nil {
		return rec, err
	}

	uname := strings.ToUpper(trimmed)

	for _, p := range prefixes {
		if !strings.HasPrefix(uname, p.token) {
			continue
		}
		rest := trimmed[len(p.token):]
		var parts []string
		if rest == "" {
			parts = nil
		} else {
			parts = strings.Split(rest, "::")
		}

		rec, err := parseFamily(input, p.iface, parts)
		if err != nil {
			return Record{}, err
		}
		rec.Raw = input
		return rec, nil
	}

	return Record{}, parseErr(input, 0, "unknown interface type")
}

func tryParseRemote(input, trimmed string) (Record, bool, error) {
	const scheme = "visa://"
	if len(trimmed) < len(scheme) || !strings.EqualFold(trimmed[:len(scheme)], scheme) {
		return Record{}, false, nil
	}
	rest := trimmed[len(scheme):]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return Record{}, true, parseErr(input, len(scheme), "visa:// requires /remote_resource")
	}
	hostPort, remote := rest[:slash], rest[slash+1:]
	if remote == "" {
		return Record{}, true, parseErr(input, len(trimmed), "visa:// remote_resource is empty")
	}
	inner, err := Parse(remote)
	if err != nil {
		return Record{}, true, err
	}
	if inner.Remote != nil {
		return Record{}, true, parseErr(input, len(scheme), "visa:// nesting deeper than one level is not supported")
	}

	host, portStr, hasPort := strings.Cut(hostPort, ":")
	if host == "" {
		return Record{}, true, parseErr(input, len(scheme), "visa:// requires a host")
	}
	port := 0
	if hasPort {
		var perr error
		port, perr = atoiRange(input, len(scheme)+len(host)+1, portStr, 1, 65535)
		if perr != nil {
			return Record{}, true, perr
		}
	}

	return Record{
		Raw:        input,
		RemoteHost: host,
		RemotePort: port,
		Remote:     &inner,
	}, true, nil
}

func parseFamily(input string, iface attr.InterfaceType, parts []string) (Record, error) {
	switch iface {
	case attr.InterfaceGPIB:
		return parseGPIB(input, parts)
	case attr.InterfaceASRL:
		return parseASRL(input, parts)
	case attr.InterfaceTCPIP:
		return parseTCPIP(input, parts)
	case attr.InterfaceVICP:
		return parseVICP(input, parts)
	case attr.InterfaceUSB:
		return parseUSB(input, parts)
	case attr.InterfacePXI:
		return parsePXI(input, parts)
	case attr.InterfaceVXI:
		return parseVXI(input, parts)
	}
	return Record{}, parseErr(input, 0, "unhandled interface type")
}

// popClass removes and returns the trailing resource-class token if it
// matches one of known; otherwise returns def (the default class) and
// leaves parts untouched. An empty known+absent default is an error.
func popClass(input string, parts []string, known map[string]attr.ResourceClass, def attr.ResourceClass, hasDefault bool) ([]string, attr.ResourceClass, error) {
	if len(parts) > 0 {
		last := strings.ToUpper(parts[len(parts)-1])
		if cls, ok := known[last]; ok {
			return parts[:len(parts)-1], cls, nil
		}
	}
	if hasDefault {
		return parts, def, nil
	}
	return nil, "", parseErr(input, 0, "resource class is required and could not be defaulted")
}

func atoiRange(input string, pos int, token string, min, max int) (int, error) {
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, parseErr(input, pos, "expected an integer, got %q", token)
	}
	if v < min || v > max {
		return 0, parseErr(input, pos, "value %d out of range [%d, %d]", v, min, max)
	}
	return v, nil
}

func atoiDefault(token string, def int) (int, error) {
	if token == "" {
		return def, nil
	}
	return strconv.Atoi(token)
}

func parseHex16(input string, pos int, token string) (uint16, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 16)
	if err != nil {
		return 0, parseErr(input, pos, "expected a hex value, got %q", token)
	}
	return uint16(v), nil
}

func parseBoard(input string, first string) (int, string, error) {
	if first == "" {
		return 0, "", nil
	}
	n, err := strconv.Atoi(first)
	if err != nil {
		// non-numeric board identifier (e.g. an OS device path) is only
		// legal for ASRL; callers for other families treat this as an error.
		return 0, first, nil
	}
	return n, "", nil
}

func parseGPIB(input string, parts []string) (Record, error) {
	parts, class, err := popClass(input, parts,
		map[string]attr.ResourceClass{"INSTR": attr.ClassINSTR, "INTFC": attr.ClassINTFC},
		attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}

	if class == attr.ClassINTFC {
		board := 0
		if len(parts) > 0 {
			if board, err = atoiDefault(parts[0], 0); err != nil {
				return Record{}, parseErr(input, 0, "bad GPIB board: %v", err)
			}
		}
		if len(parts) > 1 {
			return Record{}, parseErr(input, 0, "too many parts for GPIB::INTFC")
		}
		return Record{InterfaceType: attr.InterfaceGPIB, ResourceClass: class, Board: board}, nil
	}

	if len(parts) < 1 {
		return Record{}, parseErr(input, 0, "GPIB::INSTR requires a primary address")
	}
	board, err := atoiDefault(parts[0], 0)
	if err != nil {
		return Record{}, parseErr(input, 0, "bad GPIB board: %v", err)
	}
	rest := parts[1:]
	if len(rest) < 1 || rest[0] == "" {
		return Record{}, parseErr(input, 0, "GPIB::INSTR requires a primary address")
	}
	primary, err := atoiRange(input, 0, rest[0], 0, 30)
	if err != nil {
		return Record{}, err
	}
	secondary := NoSecondaryAddress
	if len(rest) > 1 && rest[1] != "" {
		secondary, err = atoiRange(input, 0, rest[1], 0, 30)
		if err != nil {
			return Record{}, err
		}
	}
	if len(rest) > 2 {
		return Record{}, parseErr(input, 0, "too many parts for GPIB::INSTR")
	}
	return Record{
		InterfaceType:    attr.InterfaceGPIB,
		ResourceClass:    class,
		Board:            board,
		PrimaryAddress:   primary,
		SecondaryAddress: secondary,
	}, nil
}

func parseASRL(input string, parts []string) (Record, error) {
	parts, class, err := popClass(input, parts,
		map[string]attr.ResourceClass{"INSTR": attr.ClassINSTR},
		attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}
	if len(parts) > 1 {
		return Record{}, parseErr(input, 0, "too many parts for ASRL::INSTR")
	}
	rec := Record{InterfaceType: attr.InterfaceASRL, ResourceClass: class}
	if len(parts) == 1 && parts[0] != "" {
		board, alias, err := parseBoard(input, parts[0])
		if err != nil {
			return Record{}, err
		}
		if alias != "" {
			rec.BoardAlias = alias
		} else {
			rec.Board = board
		}
	}
	return rec, nil
}

func parseTCPIP(input string, parts []string) (Record, error) {
	parts, class, err := popClass(input, parts,
		map[string]attr.ResourceClass{"INSTR": attr.ClassINSTR, "SOCKET": attr.ClassSOCKET},
		attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}
	if len(parts) < 1 {
		return Record{}, parseErr(input, 0, "TCPIP requires a host address")
	}
	board, err := atoiDefault(parts[0], 0)
	if err != nil {
		return Record{}, parseErr(input, 0, "bad TCPIP board: %v", err)
	}
	rest := parts[1:]
	if len(rest) < 1 || rest[0] == "" {
		return Record{}, parseErr(input, 0, "TCPIP requires a host address")
	}
	host := rest[0]
	rest = rest[1:]

	rec := Record{InterfaceType: attr.InterfaceTCPIP, ResourceClass: class, Board: board, Host: host}

	if class == attr.ClassSOCKET {
		if len(rest) != 1 || rest[0] == "" {
			return Record{}, parseErr(input, 0, "TCPIP::SOCKET requires a port")
		}
		port, err := atoiRange(input, 0, rest[0], 1, 65535)
		if err != nil {
			return Record{}, err
		}
		rec.Port = port
		return rec, nil
	}

	rec.LANDeviceName = "inst0"
	if len(rest) > 0 && rest[0] != "" {
		rec.LANDeviceName = rest[0]
	}
	if len(rest) > 1 {
		return Record{}, parseErr(input, 0, "too many parts for TCPIP::INSTR")
	}
	return rec, nil
}

func parseVICP(input string, parts []string) (Record, error) {
	parts, class, err := popClass(input, parts,
		map[string]attr.ResourceClass{"INSTR": attr.ClassINSTR},
		attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}
	if len(parts) < 1 {
		return Record{}, parseErr(input, 0, "VICP requires a host address")
	}
	board, err := atoiDefault(parts[0], 0)
	if err != nil {
		return Record{}, parseErr(input, 0, "bad VICP board: %v", err)
	}
	rest := parts[1:]
	if len(rest) != 1 || rest[0] == "" {
		return Record{}, parseErr(input, 0, "VICP requires a host address")
	}
	return Record{InterfaceType: attr.InterfaceVICP, ResourceClass: class, Board: board, Host: rest[0]}, nil
}

func parseUSB(input string, parts []string) (Record, error) {
	parts, class, err := popClass(input, parts,
		map[string]attr.ResourceClass{"INSTR": attr.ClassINSTR, "RAW": attr.ClassRAW},
		attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}
	if len(parts) < 1 {
		return Record{}, parseErr(input, 0, "USB requires manufacturer/model/serial")
	}
	board, err := atoiDefault(parts[0], 0)
	if err != nil {
		return Record{}, parseErr(input, 0, "bad USB board: %v", err)
	}
	rest := parts[1:]
	if len(rest) < 3 {
		return Record{}, parseErr(input, 0, "USB requires manufacturer ID, model code and serial number")
	}
	mfg, err := parseHex16(input, 0, rest[0])
	if err != nil {
		return Record{}, err
	}
	model, err := parseHex16(input, 0, rest[1])
	if err != nil {
		return Record{}, err
	}
	serial := rest[2]
	rest = rest[3:]

	rec := Record{
		InterfaceType:  attr.InterfaceUSB,
		ResourceClass:  class,
		Board:          board,
		ManufacturerID: mfg,
		ModelCode:      model,
		SerialNumber:   serial,
	}
	if len(rest) > 0 && rest[0] != "" {
		ifn, err := atoiRange(input, 0, rest[0], 0, 255)
		if err != nil {
			return Record{}, err
		}
		rec.USBInterfaceNumber = ifn
		rec.USBInterfaceSet = true
	}
	if len(rest) > 1 {
		return Record{}, parseErr(input, 0, "too many parts for USB resource")
	}
	return rec, nil
}

var chassisRe = regexp.MustCompile(`(?i)^CHASSIS([0-9]+)$`)
var slotRe = regexp.MustCompile(`(?i)^SLOT([0-9]+)$`)
var funcRe = regexp.MustCompile(`(?i)^FUNC([0-9]+)$`)
var busDeviceHyphenRe = regexp.MustCompile(`^([0-9]+)-([0-9]+)(?:\.([0-9]+))?$`)

func parsePXI(input string, parts []string) (Record, error) {
	known := map[string]attr.ResourceClass{
		"INSTR": attr.ClassINSTR, "BACKPLANE": attr.ClassBACKPLANE, "MEMACC": attr.ClassMEMACC,
	}
	popped, class, err := popClass(input, parts, known, attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}

	leading := 0
	if len(popped) > 0 {
		if leading, err = atoiDefault(popped[0], 0); err != nil {
			return Record{}, parseErr(input, 0, "bad PXI interface: %v", err)
		}
		popped = popped[1:]
	}

	if class == attr.ClassMEMACC {
		if len(popped) > 0 {
			return Record{}, parseErr(input, 0, "too many parts for PXI::MEMACC")
		}
		return Record{InterfaceType: attr.InterfacePXI, ResourceClass: class, Board: leading}, nil
	}

	if class == attr.ClassBACKPLANE {
		chassis := 0
		if len(popped) > 0 {
			if chassis, err = atoiDefault(popped[0], 0); err != nil {
				return Record{}, parseErr(input, 0, "bad PXI chassis number: %v", err)
			}
			popped = popped[1:]
		}
		if len(popped) > 0 {
			return Record{}, parseErr(input, 0, "too many parts for PXI::BACKPLANE")
		}
		return Record{InterfaceType: attr.InterfacePXI, ResourceClass: class, Board: leading, PXIChassis: chassis}, nil
	}

	// INSTR: board(interface) attaches directly, then either
	//   <device>[::<function>]
	//   <bus>-<device>[.<function>]
	//   CHASSISn::SLOTm[::FUNCf]
	rest := popped
	rec := Record{InterfaceType: attr.InterfacePXI, ResourceClass: attr.ClassINSTR, Board: leading}

	if len(rest) == 0 {
		return Record{}, parseErr(input, 0, "PXI::INSTR requires bus/device information")
	}

	if m := chassisRe.FindStringSubmatch(rest[0]); m != nil {
		if len(rest) < 2 {
			return Record{}, parseErr(input, 0, "PXI chassis/slot form requires SLOTm")
		}
		sm := slotRe.FindStringSubmatch(rest[1])
		if sm == nil {
			return Record{}, parseErr(input, 0, "expected SLOTm after CHASSISn")
		}
		rec.PXIForm = PXIFormChassisSlot
		rec.PXIChassis, _ = strconv.Atoi(m[1])
		rec.PXISlot, _ = strconv.Atoi(sm[1])
		if len(rest) > 2 {
			fm := funcRe.FindStringSubmatch(rest[2])
			if fm == nil {
				return Record{}, parseErr(input, 0, "expected FUNCf")
			}
			rec.PXIFunction, _ = strconv.Atoi(fm[1])
		}
		return rec, nil
	}

	if m := busDeviceHyphenRe.FindStringSubmatch(rest[0]); m != nil {
		rec.PXIForm = PXIFormBusDeviceHyphen
		rec.PXIBus, _ = strconv.Atoi(m[1])
		rec.PXIDevice, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			rec.PXIFunction, _ = strconv.Atoi(m[3])
		}
		if len(rest) > 1 {
			return Record{}, parseErr(input, 0, "too many parts for PXI::INSTR")
		}
		return rec, nil
	}

	device, err := strconv.Atoi(rest[0])
	if err != nil {
		return Record{}, parseErr(input, 0, "expected a PXI device number, got %q", rest[0])
	}
	rec.PXIForm = PXIFormBusDevice
	rec.PXIDevice = device
	if len(rest) > 1 && rest[1] != "" {
		fn, err := strconv.Atoi(rest[1])
		if err != nil {
			return Record{}, parseErr(input, 0, "expected a PXI function number, got %q", rest[1])
		}
		rec.PXIFunction = fn
	}
	if len(rest) > 2 {
		return Record{}, parseErr(input, 0, "too many parts for PXI::INSTR")
	}
	return rec, nil
}

func parseVXI(input string, parts []string) (Record, error) {
	popped, class, err := popClass(input, parts,
		map[string]attr.ResourceClass{
			"INSTR": attr.ClassINSTR, "BACKPLANE": attr.ClassBACKPLANE,
			"MEMACC": attr.ClassMEMACC, "SERVANT": attr.ClassSERVANT,
		},
		attr.ClassINSTR, true)
	if err != nil {
		return Record{}, err
	}

	board := 0
	if len(popped) > 0 {
		if board, err = atoiDefault(popped[0], 0); err != nil {
			return Record{}, parseErr(input, 0, "bad VXI board: %v", err)
		}
		popped = popped[1:]
	}

	switch class {
	case attr.ClassMEMACC, attr.ClassSERVANT:
		if len(popped) > 0 {
			return Record{}, parseErr(input, 0, "too many parts for VXI::%s", class)
		}
		return Record{InterfaceType: attr.InterfaceVXI, ResourceClass: class, Board: board}, nil
	case attr.ClassBACKPLANE:
		la := 0
		if len(popped) > 0 {
			if la, err = atoiDefault(popped[0], 0); err != nil {
				return Record{}, parseErr(input, 0, "bad VXI logical address: %v", err)
			}
			popped = popped[1:]
		}
		if len(popped) > 0 {
			return Record{}, parseErr(input, 0, "too many parts for VXI::BACKPLANE")
		}
		return Record{InterfaceType: attr.InterfaceVXI, ResourceClass: class, Board: board, VXILogicalAddress: la}, nil
	}

	if len(popped) < 1 || popped[0] == "" {
		return Record{}, parseErr(input, 0, "VXI::INSTR requires a logical address")
	}
	la, err := strconv.Atoi(popped[0])
	if err != nil {
		return Record{}, parseErr(input, 0, "bad VXI logical address: %v", err)
	}
	if len(popped) > 1 {
		return Record{}, parseErr(input, 0, "too many parts for VXI::INSTR")
	}
	return Record{
		InterfaceType: attr.InterfaceVXI, ResourceClass: class,
		Board: board, VXILogicalAddress: la, VXIHasLA: true,
	}, nil
}
