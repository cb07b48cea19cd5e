package rname

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
)

// Render canonicalizes a Record back into a resource name string. The
// result always re-parses to an Equal Record, regardless of how the
// original string was cased or abbreviated.
func Render(r Record) string {
	if r.Remote != nil {
		host := r.RemoteHost
		if r.RemotePort != 0 {
			host = fmt.Sprintf("%s:%d", host, r.RemotePort)
		}
		return fmt.Sprintf("visa://%s/%s", host, Render(*r.Remote))
	}

	if r.BoardAlias != "" && r.InterfaceType == attr.InterfaceASRL && r.Board == 0 {
		if comLptAlias.MatchString(r.BoardAlias) {
			return strings.ToUpper(r.BoardAlias)
		}
	}

	switch r.InterfaceType {
	case attr.InterfaceGPIB:
		return renderGPIB(r)
	case attr.InterfaceASRL:
		return renderASRL(r)
	case attr.InterfaceTCPIP:
		return renderTCPIP(r)
	case attr.InterfaceVICP:
		return fmt.Sprintf("VICP%d::%s::INSTR", r.Board, r.Host)
	case attr.InterfaceUSB:
		return renderUSB(r)
	case attr.InterfacePXI:
		return renderPXI(r)
	case attr.InterfaceVXI:
		return renderVXI(r)
	}
	return ""
}

func renderGPIB(r Record) string {
	if r.ResourceClass == attr.ClassINTFC {
		return fmt.Sprintf("GPIB%d::INTFC", r.Board)
	}
	if r.SecondaryAddress != NoSecondaryAddress {
		return fmt.Sprintf("GPIB%d::%d::%d::INSTR", r.Board, r.PrimaryAddress, r.SecondaryAddress)
	}
	return fmt.Sprintf("GPIB%d::%d::INSTR", r.Board, r.PrimaryAddress)
}

func renderASRL(r Record) string {
	board := strconv.Itoa(r.Board)
	if r.BoardAlias != "" {
		board = r.BoardAlias
	}
	return fmt.Sprintf("ASRL%s::INSTR", board)
}

func renderTCPIP(r Record) string {
	if r.ResourceClass == attr.ClassSOCKET {
		return fmt.Sprintf("TCPIP%d::%s::%d::SOCKET", r.Board, r.Host, r.Port)
	}
	dev := r.LANDeviceName
	if dev == "" {
		dev = "inst0"
	}
	return fmt.Sprintf("TCPIP%d::%s::%s::INSTR", r.Board, r.Host, dev)
}

func renderUSB(r Record) string {
	class := "INSTR"
	if r.ResourceClass == attr.ClassRAW {
		class = "RAW"
	}
	ifn := ""
	if r.USBInterfaceSet {
		ifn = fmt.Sprintf("::%d", r.USBInterfaceNumber)
	}
	return fmt.Sprintf("USB%d::0x%04X::0x%04X::%s%s::%s",
		r.Board, r.ManufacturerID, r.ModelCode, r.SerialNumber, ifn, class)
}

func renderPXI(r Record) string {
	switch r.ResourceClass {
	case attr.ClassMEMACC:
		return fmt.Sprintf("PXI%d::MEMACC", r.Board)
	case attr.ClassBACKPLANE:
		return fmt.Sprintf("PXI%d::%d::BACKPLANE", r.Board, r.PXIChassis)
	}
	switch r.PXIForm {
	case PXIFormChassisSlot:
		s := fmt.Sprintf("PXI%d::CHASSIS%d::SLOT%d", r.Board, r.PXIChassis, r.PXISlot)
		if r.PXIFunction != 0 {
			s += fmt.Sprintf("::FUNC%d", r.PXIFunction)
		}
		return s + "::INSTR"
	case PXIFormBusDeviceHyphen:
		s := fmt.Sprintf("PXI%d::%d-%d", r.Board, r.PXIBus, r.PXIDevice)
		if r.PXIFunction != 0 {
			s += fmt.Sprintf(".%d", r.PXIFunction)
		}
		return s + "::INSTR"
	default:
		s := fmt.Sprintf("PXI%d::%d", r.Board, r.PXIDevice)
		if r.PXIFunction != 0 {
			s += fmt.Sprintf("::%d", r.PXIFunction)
		}
		return s + "::INSTR"
	}
}

func renderVXI(r Record) string {
	switch r.ResourceClass {
	case attr.ClassMEMACC:
		return fmt.Sprintf("VXI%d::MEMACC", r.Board)
	case attr.ClassSERVANT:
		return fmt.Sprintf("VXI%d::SERVANT", r.Board)
	case attr.ClassBACKPLANE:
		return fmt.Sprintf("VXI%d::%d::BACKPLANE", r.Board, r.VXILogicalAddress)
	}
	return fmt.Sprintf("VXI%d::%d::INSTR", r.Board, r.VXILogicalAddress)
}
