package instrument

import (
	"context"
	"fmt"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
)

// USBInstrument is a message-based resource addressed over USBTMC. Beyond
// ordinary message-based I/O it exposes the interface number the backend
// claimed, useful when a device exports more than one USBTMC interface.
type USBInstrument struct {
	*MessageBased
}

// NewUSBInstrument wraps res, defaulting read/write termination as
// NewMessageBased does.
func NewUSBInstrument(res *Resource) *USBInstrument {
	return &USBInstrument{MessageBased: NewMessageBased(res)}
}

// InterfaceNumber returns the USB interface number this session claimed.
func (u *USBInstrument) InterfaceNumber() (int, error) {
	v, err := u.GetAttribute(attr.AttrUSBIntfcNum)
	if err != nil {
		return 0, err
	}
	n, _ := v.(uint16)
	return int(n), nil
}

// ControlIn issues a USB control-endpoint IN transfer.
func (u *USBInstrument) ControlIn(ctx context.Context, requestType, request uint8, value, index uint16, length int) ([]byte, error) {
	c, ok := u.Session.(backend.USBControlTransferer)
	if !ok {
		return nil, fmt.Errorf("instrument: session does not support USB control transfers")
	}
	return c.ControlIn(ctx, requestType, request, value, index, length)
}

// ControlOut issues a USB control-endpoint OUT transfer.
func (u *USBInstrument) ControlOut(ctx context.Context, requestType, request uint8, value, index uint16, data []byte) (int, error) {
	c, ok := u.Session.(backend.USBControlTransferer)
	if !ok {
		return 0, fmt.Errorf("instrument: session does not support USB control transfers")
	}
	return c.ControlOut(ctx, requestType, request, value, index, data)
}
