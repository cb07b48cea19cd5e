package instrument

import (
	"context"
	"fmt"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
)

// GPIBInstrument is a message-based resource addressed on a GPIB bus. It
// adds the controller-in-charge controls that only make sense on GPIB: REN
// line state and whether the device unaddresses itself after each transfer.
type GPIBInstrument struct {
	*MessageBased
}

// NewGPIBInstrument wraps res, defaulting read/write termination the way
// NewMessageBased does; GPIB's own end-of-transfer signaling (EOI) happens
// below this layer, in the backend session.
func NewGPIBInstrument(res *Resource) *GPIBInstrument {
	return &GPIBInstrument{MessageBased: NewMessageBased(res)}
}

// SetREN sets the bus's Remote Enable line for this controller.
func (g *GPIBInstrument) SetREN(enabled bool) error {
	return g.SetAttribute(attr.AttrGPIBRENState, enabled)
}

// SetUnaddressed controls whether the device is unaddressed (untalked and
// unlistened) after each I/O operation completes.
func (g *GPIBInstrument) SetUnaddressed(enabled bool) error {
	return g.SetAttribute(attr.AttrGPIBUnaddressed, enabled)
}

func (g *GPIBInstrument) controller() (backend.GPIBController, error) {
	c, ok := g.Session.(backend.GPIBController)
	if !ok {
		return nil, fmt.Errorf("instrument: session does not support GPIB bus operations")
	}
	return c, nil
}

// SendCommand writes cmd directly onto the bus in command mode (ATN
// asserted), bypassing message-based framing.
func (g *GPIBInstrument) SendCommand(ctx context.Context, cmd []byte) error {
	c, err := g.controller()
	if err != nil {
		return err
	}
	return c.SendCommand(ctx, cmd)
}

// Trigger issues a Group Execute Trigger to this device alone.
func (g *GPIBInstrument) Trigger(ctx context.Context) error {
	c, err := g.controller()
	if err != nil {
		return err
	}
	return c.Trigger(ctx)
}

// ReadStatusByteV2 reads the device's IEEE-488.2 status byte via a serial
// poll.
func (g *GPIBInstrument) ReadStatusByteV2(ctx context.Context) (byte, error) {
	c, err := g.controller()
	if err != nil {
		return 0, err
	}
	return c.ReadStatusByte(ctx)
}

// WaitForSRQ blocks until the device asserts a service request or timeoutMs
// elapses.
func (g *GPIBInstrument) WaitForSRQ(ctx context.Context, timeoutMs uint32) error {
	c, err := g.controller()
	if err != nil {
		return err
	}
	return c.WaitForSRQ(ctx, timeoutMs)
}

// GPIBInterface addresses a whole GPIB controller board rather than a
// single instrument on it (resource class INTFC). It exposes bus-wide
// control operations instead of message-based I/O.
type GPIBInterface struct {
	*Resource
}

// NewGPIBInterface wraps res as a controller-board resource.
func NewGPIBInterface(res *Resource) *GPIBInterface {
	return &GPIBInterface{Resource: res}
}

// SendIFC pulses the bus's Interface Clear line, resetting every device's
// talker/listener state.
func (g *GPIBInterface) SendIFC(ctx context.Context) error {
	return g.Session.Clear(ctx)
}

// SetREN sets the controller's Remote Enable line for the whole bus.
func (g *GPIBInterface) SetREN(enabled bool) error {
	return g.SetAttribute(attr.AttrGPIBRENState, enabled)
}

func (g *GPIBInterface) bus() (backend.GPIBBusController, error) {
	c, ok := g.Session.(backend.GPIBBusController)
	if !ok {
		return nil, fmt.Errorf("instrument: session does not support GPIB bus-wide operations")
	}
	return c, nil
}

// SendCommand writes cmd onto the bus in command mode, addressed to
// whichever devices are currently listening.
func (g *GPIBInterface) SendCommand(ctx context.Context, cmd []byte) error {
	c, err := g.bus()
	if err != nil {
		return err
	}
	return c.SendCommandToAll(ctx, cmd)
}

// SendList addresses each of addresses as a listener in turn and writes
// cmd, the multi-device counterpart of GPIBInstrument.SendCommand.
func (g *GPIBInterface) SendList(ctx context.Context, addresses []uint16, cmd []byte) error {
	c, err := g.bus()
	if err != nil {
		return err
	}
	return c.SendListAddress(ctx, addresses, cmd)
}

// EnableRemote asserts REN and addresses each of addresses into remote mode.
func (g *GPIBInterface) EnableRemote(ctx context.Context, addresses []uint16) error {
	c, err := g.bus()
	if err != nil {
		return err
	}
	return c.EnableRemote(ctx, addresses)
}

// DisableRemote returns every device on the bus to local control.
func (g *GPIBInterface) DisableRemote(ctx context.Context) error {
	c, err := g.bus()
	if err != nil {
		return err
	}
	return c.DisableRemote(ctx)
}

// PassControl hands controller-in-charge status to the device at address.
func (g *GPIBInterface) PassControl(ctx context.Context, address uint16) error {
	c, err := g.bus()
	if err != nil {
		return err
	}
	return c.PassControl(ctx, address)
}

// GroupExecuteTrigger triggers every device in addresses simultaneously.
func (g *GPIBInterface) GroupExecuteTrigger(ctx context.Context, addresses []uint16) error {
	c, err := g.bus()
	if err != nil {
		return err
	}
	return c.GroupExecuteTrigger(ctx, addresses)
}
