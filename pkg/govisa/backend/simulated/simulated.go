// Package simulated provides an in-process fake backend.Backend for tests
// and for development without physical instruments: a hookable fake that
// echoes predictable behavior by default and lets a caller substitute
// per-resource canned responses.
package simulated

import (
	"context"
	"fmt"
	"sync"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

func init() {
	backend.Register("sim", func(options string) (backend.Backend, error) {
		return New(), nil
	})
}

// WriteHook lets a test observe or react to bytes written to a resource.
// It returns the byte count to report as written (defaults to len(data)
// when OnWrite is nil).
type WriteHook func(resource string, data []byte) (int, error)

// ReadHook supplies the bytes a subsequent Read call returns for resource.
// It is called once per Read; a nil return with no error yields an empty read.
type ReadHook func(resource string, max int) ([]byte, error)

// Backend is an in-memory fake implementing backend.Backend. Resources are
// created lazily on first OpenSession; each keeps its own attribute table
// seeded from pkg/govisa/attr's defaults. Seed fills a resource's read
// queue, not its attribute table.
type Backend struct {
	mu        sync.Mutex
	resources map[string]*resourceState
	queued    map[string][][]byte // Seed()-supplied read responses, per resource

	OnWrite WriteHook
	OnRead  ReadHook
}

type resourceState struct {
	attrs   map[uint32]any
	memory  map[uint64]uint64
	locked  bool
	lockKey string
}

// New constructs an empty simulated backend.
func New() *Backend {
	return &Backend{
		resources: map[string]*resourceState{},
		queued:    map[string][][]byte{},
	}
}

// Seed pre-loads resource's read queue with data, consumed FIFO by Read
// calls that have no OnRead hook installed.
func (b *Backend) Seed(resource string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queued[resource] = append(b.queued[resource], data)
}

func (b *Backend) Name() string { return "sim" }

func (b *Backend) FindResources(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.resources))
	for r := range b.resources {
		out = append(out, r)
	}
	return out, nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) OpenSession(ctx context.Context, rec rname.Record, mode attr.AccessMode, timeoutMs uint32) (backend.Session, error) {
	name := rname.Render(rec)
	b.mu.Lock()
	st, ok := b.resources[name]
	if !ok {
		st = &resourceState{attrs: map[uint32]any{}}
		for _, d := range attr.All() {
			if d.Default != nil {
				st.attrs[d.ID] = d.Default
			}
		}
		b.resources[name] = st
	}
	if mode == attr.AccessExclusive && st.locked {
		b.mu.Unlock()
		return nil, fmt.Errorf("sim: resource %q is exclusively locked", name)
	}
	b.mu.Unlock()

	return &session{backend: b, resource: name, state: st, timeoutMs: timeoutMs}, nil
}

type session struct {
	backend   *Backend
	resource  string
	state     *resourceState
	timeoutMs uint32
}

func (s *session) Write(ctx context.Context, data []byte) (int, error) {
	if s.backend.OnWrite != nil {
		return s.backend.OnWrite(s.resource, data)
	}
	return len(data), nil
}

func (s *session) Read(ctx context.Context, max int) ([]byte, error) {
	if s.backend.OnRead != nil {
		return s.backend.OnRead(s.resource, max)
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	queue := s.backend.queued[s.resource]
	if len(queue) == 0 {
		return nil, nil
	}
	next := queue[0]
	s.backend.queued[s.resource] = queue[1:]
	if max > 0 && len(next) > max {
		rest := next[max:]
		s.backend.queued[s.resource] = append([][]byte{rest}, s.backend.queued[s.resource]...)
		next = next[:max]
	}
	return next, nil
}

func (s *session) GetAttribute(id uint32) (any, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	v, ok := s.state.attrs[id]
	if !ok {
		return nil, fmt.Errorf("sim: attribute 0x%08X has no value on %q", id, s.resource)
	}
	return v, nil
}

func (s *session) SetAttribute(id uint32, value any) error {
	if _, err := attr.Lookup(id); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.state.attrs[id] = value
	return nil
}

func (s *session) Clear(ctx context.Context) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.queued[s.resource] = nil
	return nil
}

func (s *session) Lock(kind attr.LockKind, timeoutMs uint32, requestedKey string) (string, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.state.locked {
		return "", fmt.Errorf("sim: resource %q is already locked", s.resource)
	}
	s.state.locked = true
	key := requestedKey
	if key == "" {
		key = s.resource + "-key"
	}
	s.state.lockKey = key
	return key, nil
}

func (s *session) Unlock() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.state.locked = false
	s.state.lockKey = ""
	return nil
}

func (s *session) Close() error { return nil }

// SendCommand, Trigger, ReadStatusByte and WaitForSRQ implement
// backend.GPIBController against the same in-memory state Write/Read use,
// so a GPIBInstrument test can exercise bus operations without a real
// controller board.
func (s *session) SendCommand(ctx context.Context, cmd []byte) error {
	_, err := s.Write(ctx, cmd)
	return err
}

func (s *session) Trigger(ctx context.Context) error { return nil }

func (s *session) ReadStatusByte(ctx context.Context) (byte, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	v, _ := s.state.attrs[statusByteAttr]
	b, _ := v.(byte)
	return b, nil
}

func (s *session) WaitForSRQ(ctx context.Context, timeoutMs uint32) error { return nil }

// SendCommandToAll, SendListAddress, EnableRemote, DisableRemote,
// PassControl and GroupExecuteTrigger implement backend.GPIBBusController.
func (s *session) SendCommandToAll(ctx context.Context, cmd []byte) error {
	_, err := s.Write(ctx, cmd)
	return err
}

func (s *session) SendListAddress(ctx context.Context, addresses []uint16, cmd []byte) error {
	_, err := s.Write(ctx, cmd)
	return err
}

func (s *session) EnableRemote(ctx context.Context, addresses []uint16) error { return nil }

func (s *session) DisableRemote(ctx context.Context) error { return nil }

func (s *session) PassControl(ctx context.Context, address uint16) error { return nil }

func (s *session) GroupExecuteTrigger(ctx context.Context, addresses []uint16) error { return nil }

// AssertTrigger implements backend.TriggerController.
func (s *session) AssertTrigger(ctx context.Context, line int) error { return nil }

// ReadMemory, WriteMemory, MoveIn, MoveOut, MapAddress and UnmapAddress
// implement backend.MemoryAccessor over a flat byte-addressed map, letting
// register-based resource tests run against the simulated backend.
func (s *session) ReadMemory(ctx context.Context, offset uint64, width int) (uint64, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.state.memory == nil {
		return 0, nil
	}
	return s.state.memory[offset], nil
}

func (s *session) WriteMemory(ctx context.Context, offset uint64, width int, value uint64) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.state.memory == nil {
		s.state.memory = map[uint64]uint64{}
	}
	s.state.memory[offset] = value
	return nil
}

func (s *session) MoveIn(ctx context.Context, offset uint64, width int, count int) ([]uint64, error) {
	out := make([]uint64, count)
	for i := 0; i < count; i++ {
		v, err := s.ReadMemory(ctx, offset+uint64(i), width)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *session) MoveOut(ctx context.Context, offset uint64, width int, values []uint64) error {
	for i, v := range values {
		if err := s.WriteMemory(ctx, offset+uint64(i), width, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) MapAddress(ctx context.Context, offset, length uint64) error { return nil }

func (s *session) UnmapAddress(ctx context.Context) error { return nil }

// ControlIn and ControlOut implement backend.USBControlTransferer as a
// no-op loopback, sufficient for exercising USBInstrument's call surface.
func (s *session) ControlIn(ctx context.Context, requestType, request uint8, value, index uint16, length int) ([]byte, error) {
	return make([]byte, length), nil
}

func (s *session) ControlOut(ctx context.Context, requestType, request uint8, value, index uint16, data []byte) (int, error) {
	return len(data), nil
}

// statusByteAttr is a sim-private pseudo-attribute id (outside the real
// VI_ATTR_* space) backing ReadStatusByte, since a status byte has no VISA
// attribute of its own.
const statusByteAttr = 0xFFFF0001
