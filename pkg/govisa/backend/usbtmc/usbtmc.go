// Package usbtmc implements a backend.Backend over USBTMC (USB Test and
// Measurement Class) devices using gousb, a cgo-backed libusb binding.
// Resource names are USB::<manufacturer>::<model>::<serial>[::<interface>]::INSTR
// strings (pkg/govisa/rname); discovery matches devices by interface
// class/subclass rather than a fixed VID/PID pair.
package usbtmc

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

// USBTMC interface/subclass/protocol per the USB Test and Measurement Class
// specification.
const (
	classApplicationSpecific = 0xFE
	subclassUSBTMC           = 0x03
	protocolUSBTMC           = 0x00
)

const defaultTimeout = 5 * time.Second

func init() {
	backend.Register("usbtmc", func(options string) (backend.Backend, error) {
		return New(), nil
	})
}

// Backend discovers and opens USBTMC instruments through gousb.
type Backend struct {
	mu  sync.Mutex
	ctx *gousb.Context
}

// New creates a USBTMC backend with its own gousb.Context, closed when
// Backend.Close is called.
func New() *Backend {
	return &Backend{ctx: gousb.NewContext()}
}

func (b *Backend) Name() string { return "usbtmc" }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx.Close()
}

// FindResources enumerates every attached device exposing a USBTMC
// interface and renders a resource name for each.
func (b *Backend) FindResources(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return hasUSBTMCInterface(desc)
	})
	if err != nil {
		return nil, fmt.Errorf("usbtmc: enumerate devices: %w", err)
	}
	for _, d := range devs {
		serial, _ := d.SerialNumber()
		rec := rname.Record{
			InterfaceType:  attr.InterfaceUSB,
			ResourceClass:  attr.ClassINSTR,
			ManufacturerID: uint16(d.Desc.Vendor),
			ModelCode:      uint16(d.Desc.Product),
			SerialNumber:   serial,
		}
		out = append(out, rname.Render(rec))
		d.Close()
	}
	return out, nil
}

func hasUSBTMCInterface(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == classApplicationSpecific &&
					alt.SubClass == subclassUSBTMC &&
					alt.Protocol == protocolUSBTMC {
					return true
				}
			}
		}
	}
	return false
}

// OpenSession opens the USB device matching rec's manufacturer/model/serial
// triple and claims the interface numbered rec.USBInterfaceNumber (0 when
// the resource name gives none).
func (b *Backend) OpenSession(ctx context.Context, rec rname.Record, mode attr.AccessMode, timeoutMs uint32) (backend.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dev, err := b.ctx.OpenDeviceWithVIDPID(gousb.ID(rec.ManufacturerID), gousb.ID(rec.ModelCode))
	if err != nil {
		return nil, fmt.Errorf("usbtmc: open device: %w", err)
	}
	if dev == nil {
		return nil, fmt.Errorf("usbtmc: no device matching VID:0x%04X PID:0x%04X", rec.ManufacturerID, rec.ModelCode)
	}
	if rec.SerialNumber != "" {
		if serial, _ := dev.SerialNumber(); serial != rec.SerialNumber {
			dev.Close()
			return nil, fmt.Errorf("usbtmc: serial number mismatch: want %q", rec.SerialNumber)
		}
	}
	_ = dev.SetAutoDetach(true)

	intfNum := rec.USBInterfaceNumber
	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("usbtmc: get config: %w", err)
	}
	intf, err := cfg.Interface(intfNum, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		return nil, fmt.Errorf("usbtmc: claim interface %d: %w", intfNum, err)
	}

	epOut, epIn, err := findBulkEndpoints(intf)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		return nil, err
	}

	timeout := defaultTimeout
	if timeoutMs != attr.TimeoutInfinite && timeoutMs != 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}

	return &session{
		dev: dev, cfg: cfg, intf: intf,
		epOut: epOut, epIn: epIn,
		timeout: timeout,
		attrs:   map[uint32]any{attr.AttrUSBIntfcNum: uint16(intfNum)},
	}, nil
}

func findBulkEndpoints(intf *gousb.Interface) (*gousb.OutEndpoint, *gousb.InEndpoint, error) {
	var outAddr, inAddr int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionOut && outAddr == 0 {
			outAddr = ep.Number
		}
		if ep.Direction == gousb.EndpointDirectionIn && inAddr == 0 {
			inAddr = ep.Number
		}
	}
	if outAddr == 0 {
		return nil, nil, fmt.Errorf("usbtmc: bulk OUT endpoint not found")
	}
	if inAddr == 0 {
		return nil, nil, fmt.Errorf("usbtmc: bulk IN endpoint not found")
	}
	epOut, err := intf.OutEndpoint(outAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("usbtmc: open OUT endpoint: %w", err)
	}
	epIn, err := intf.InEndpoint(inAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("usbtmc: open IN endpoint: %w", err)
	}
	return epOut, epIn, nil
}

// bTag cycles 1..255 as USBTMC's transaction identifier; 0 is reserved.
type session struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	timeout time.Duration
	mu      sync.Mutex
	attrs   map[uint32]any
	tag     byte
}

const (
	msgDevDepMsgOut       = 1
	msgRequestDevDepMsgIn = 2
)

func (s *session) nextTag() byte {
	s.tag++
	if s.tag == 0 {
		s.tag = 1
	}
	return s.tag
}

// header builds a 12-byte USBTMC bulk-OUT header.
func header(msgID byte, tag byte, transferSize uint32, eom bool) []byte {
	h := make([]byte, 12)
	h[0] = msgID
	h[1] = tag
	h[2] = ^tag
	h[3] = 0
	h[4] = byte(transferSize)
	h[5] = byte(transferSize >> 8)
	h[6] = byte(transferSize >> 16)
	h[7] = byte(transferSize >> 24)
	if eom {
		h[8] = 1
	}
	return h
}

func (s *session) Write(ctx context.Context, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag := s.nextTag()
	packet := append(header(msgDevDepMsgOut, tag, uint32(len(data)), true), data...)
	for len(packet)%4 != 0 {
		packet = append(packet, 0)
	}
	if _, err := s.epOut.Write(packet); err != nil {
		return 0, fmt.Errorf("usbtmc: bulk write: %w", err)
	}
	return len(data), nil
}

func (s *session) Read(ctx context.Context, max int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		max = 1 << 20
	}
	tag := s.nextTag()
	req := header(msgRequestDevDepMsgIn, tag, uint32(max), false)
	if _, err := s.epOut.Write(req); err != nil {
		return nil, fmt.Errorf("usbtmc: bulk write (read request): %w", err)
	}

	buf := make([]byte, max+12+3)
	n, err := s.epIn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("usbtmc: bulk read: %w", err)
	}
	if n < 12 {
		return nil, fmt.Errorf("usbtmc: short response header (%d bytes)", n)
	}
	transferSize := uint32(buf[4]) | uint32(buf[5])<<8 | uint32(buf[6])<<16 | uint32(buf[7])<<24
	end := 12 + int(transferSize)
	if end > n {
		end = n
	}
	return buf[12:end], nil
}

func (s *session) GetAttribute(id uint32) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[id]
	if !ok {
		return nil, fmt.Errorf("usbtmc: attribute 0x%08X not set", id)
	}
	return v, nil
}

func (s *session) SetAttribute(id uint32, value any) error {
	if id == attr.AttrTimeoutValue {
		ms, err := toUint32(value)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.timeout = time.Duration(ms) * time.Millisecond
		s.mu.Unlock()
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[id] = value
	return nil
}

func toUint32(v any) (uint32, error) {
	switch x := v.(type) {
	case uint32:
		return x, nil
	case int:
		return uint32(x), nil
	case string:
		n, err := strconv.ParseUint(x, 10, 32)
		return uint32(n), err
	default:
		return 0, fmt.Errorf("usbtmc: cannot convert %T to uint32", v)
	}
}

func (s *session) Clear(ctx context.Context) error {
	return nil
}

func (s *session) Lock(kind attr.LockKind, timeoutMs uint32, requestedKey string) (string, error) {
	return "", fmt.Errorf("usbtmc: cooperative locking is not supported by this backend")
}

func (s *session) Unlock() error {
	return fmt.Errorf("usbtmc: cooperative locking is not supported by this backend")
}

func (s *session) Close() error {
	s.intf.Close()
	s.cfg.Close()
	return s.dev.Close()
}
