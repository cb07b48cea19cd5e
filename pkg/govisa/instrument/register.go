package instrument

import (
	"context"
	"fmt"

	"github.com/benchdrive/govisa/pkg/govisa/backend"
)

// ErrNotMemoryAccess is returned by RegisterBased operations when the
// underlying session's backend does not implement backend.MemoryAccessor.
// Not every backend can address a register space.
var ErrNotMemoryAccess = fmt.Errorf("instrument: session does not support register-based memory access")

// RegisterBased is a PXI/VXI MEMACC (or VXI BACKPLANE) resource: a flat
// addressable register space instead of message-based I/O.
type RegisterBased struct {
	*Resource
}

// NewRegisterBased wraps res as a register-based resource.
func NewRegisterBased(res *Resource) *RegisterBased {
	return &RegisterBased{Resource: res}
}

func (r *RegisterBased) memory() (backend.MemoryAccessor, error) {
	m, ok := r.Session.(backend.MemoryAccessor)
	if !ok {
		return nil, ErrNotMemoryAccess
	}
	return m, nil
}

// ReadMemory reads a single register at offset, width bits wide (8/16/32/64).
func (r *RegisterBased) ReadMemory(ctx context.Context, offset uint64, width int) (uint64, error) {
	m, err := r.memory()
	if err != nil {
		return 0, err
	}
	return m.ReadMemory(ctx, offset, width)
}

// WriteMemory writes value into the register at offset, width bits wide.
func (r *RegisterBased) WriteMemory(ctx context.Context, offset uint64, width int, value uint64) error {
	m, err := r.memory()
	if err != nil {
		return err
	}
	return m.WriteMemory(ctx, offset, width, value)
}

// MoveIn reads count consecutive registers starting at offset.
func (r *RegisterBased) MoveIn(ctx context.Context, offset uint64, width int, count int) ([]uint64, error) {
	m, err := r.memory()
	if err != nil {
		return nil, err
	}
	return m.MoveIn(ctx, offset, width, count)
}

// MoveOut writes values into consecutive registers starting at offset.
func (r *RegisterBased) MoveOut(ctx context.Context, offset uint64, width int, values []uint64) error {
	m, err := r.memory()
	if err != nil {
		return err
	}
	return m.MoveOut(ctx, offset, width, values)
}

// MapAddress maps length bytes of the resource's address space starting at
// offset into the session for subsequent direct access; UnmapAddress
// releases it.
func (r *RegisterBased) MapAddress(ctx context.Context, offset, length uint64) error {
	m, err := r.memory()
	if err != nil {
		return err
	}
	return m.MapAddress(ctx, offset, length)
}

func (r *RegisterBased) UnmapAddress(ctx context.Context) error {
	m, err := r.memory()
	if err != nil {
		return err
	}
	return m.UnmapAddress(ctx)
}

// VXIBackplane addresses a VXI chassis's backplane as a whole: register
// access plus backplane-wide trigger lines, rather than a single device's
// register space.
type VXIBackplane struct {
	*RegisterBased
}

func NewVXIBackplane(res *Resource) *VXIBackplane {
	return &VXIBackplane{RegisterBased: NewRegisterBased(res)}
}

// AssertTrigger drives one of the backplane's TTL trigger lines.
func (v *VXIBackplane) AssertTrigger(ctx context.Context, line int) error {
	t, ok := v.Session.(backend.TriggerController)
	if !ok {
		return fmt.Errorf("instrument: session does not support backplane trigger control")
	}
	return t.AssertTrigger(ctx, line)
}

// VXIMemory addresses a single VXI device's shared-memory register space:
// plain register access, no backplane-wide controls.
type VXIMemory struct {
	*RegisterBased
}

func NewVXIMemory(res *Resource) *VXIMemory {
	return &VXIMemory{RegisterBased: NewRegisterBased(res)}
}
