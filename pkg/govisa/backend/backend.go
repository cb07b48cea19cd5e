// Package backend defines the pluggable transport boundary between a
// resource manager (pkg/govisa/rm) and whatever actually moves bytes to an
// instrument: a vendor VISA shared library (backend/foreign), an in-process
// fake (backend/simulated), or a USBTMC class driver built on gousb
// (backend/usbtmc). A resource manager picks one registered Backend by name
// once, at construction; this package only holds the name -> Factory
// registry that lookup uses.
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

// Session is a single open conversation with a resource, already addressed
// and ready for I/O. Resource-class-specific semantics (termination
// character handling, binary/ASCII value framing) live a layer up in
// pkg/govisa/instrument; Session only moves bytes and attributes.
type Session interface {
	Write(ctx context.Context, data []byte) (int, error)
	Read(ctx context.Context, max int) ([]byte, error)

	GetAttribute(id uint32) (any, error)
	SetAttribute(id uint32, value any) error

	Clear(ctx context.Context) error
	Lock(kind attr.LockKind, timeoutMs uint32, requestedKey string) (accessKey string, err error)
	Unlock() error

	Close() error
}

// MemoryAccessor is implemented by sessions opened against register-based
// (PXI/VXI MEMACC, VXI BACKPLANE) resources, which expose a flat addressable
// register space instead of message-based I/O. A Session not backing a
// register-based resource simply does not implement this interface;
// instrument.RegisterBased type-asserts for it.
type MemoryAccessor interface {
	ReadMemory(ctx context.Context, offset uint64, width int) (uint64, error)
	WriteMemory(ctx context.Context, offset uint64, width int, value uint64) error
	MoveIn(ctx context.Context, offset uint64, width int, count int) ([]uint64, error)
	MoveOut(ctx context.Context, offset uint64, width int, values []uint64) error
	MapAddress(ctx context.Context, offset uint64, length uint64) error
	UnmapAddress(ctx context.Context) error
}

// GPIBController is implemented by sessions opened against a GPIB resource,
// exposing bus operations beyond ordinary message-based read/write: raw bus
// commands, device triggers, and reading the status byte.
type GPIBController interface {
	SendCommand(ctx context.Context, cmd []byte) error
	Trigger(ctx context.Context) error
	ReadStatusByte(ctx context.Context) (byte, error)
	WaitForSRQ(ctx context.Context, timeoutMs uint32) error
}

// GPIBBusController is implemented by sessions opened against a GPIB
// controller board (INTFC), exposing whole-bus operations that address more
// than one device at a time.
type GPIBBusController interface {
	SendCommandToAll(ctx context.Context, cmd []byte) error
	SendListAddress(ctx context.Context, addresses []uint16, cmd []byte) error
	EnableRemote(ctx context.Context, addresses []uint16) error
	DisableRemote(ctx context.Context) error
	PassControl(ctx context.Context, address uint16) error
	GroupExecuteTrigger(ctx context.Context, addresses []uint16) error
}

// TriggerController is implemented by sessions that can drive a bus's
// hardware trigger lines directly, such as a VXI backplane.
type TriggerController interface {
	AssertTrigger(ctx context.Context, line int) error
}

// USBControlTransferer is implemented by sessions opened against USB
// resources, exposing the control endpoint alongside the bulk one Write/Read
// already address.
type USBControlTransferer interface {
	ControlIn(ctx context.Context, requestType, request uint8, value, index uint16, length int) ([]byte, error)
	ControlOut(ctx context.Context, requestType, request uint8, value, index uint16, data []byte) (int, error)
}

// Backend opens sessions against resources and enumerates what is
// reachable. A Backend is addressed by name through Open/Register and is
// safe for concurrent use by multiple resource managers.
type Backend interface {
	// Name reports the backend's registration name.
	Name() string
	// OpenSession addresses rec and returns a live Session.
	OpenSession(ctx context.Context, rec rname.Record, mode attr.AccessMode, timeoutMs uint32) (Session, error)
	// FindResources returns the canonical resource name strings visible to
	// this backend, before any rname.Filter expression is applied.
	FindResources(ctx context.Context) ([]string, error)
	// Close releases any resources the backend itself holds (library
	// handles, device contexts); it does not close sessions opened from it.
	Close() error
}

// Factory constructs a Backend from its backend-specific options string
// (for the foreign backend, a shared library path).
type Factory func(options string) (Backend, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register associates name with factory, so Open(name, options) resolves to
// a Backend built by calling factory with options. Re-registering a name
// replaces it; backends typically call this from an init() function.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Names returns every registered backend name, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ErrUnknownBackend is returned by Open for a name with no registered factory.
var ErrUnknownBackend = fmt.Errorf("backend: no backend registered under this name")

// Open resolves name to its registered factory and constructs a Backend
// with the given options.
func Open(name string, options string) (Backend, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return factory(options)
}
