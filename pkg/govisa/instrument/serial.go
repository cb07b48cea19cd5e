package instrument

import "github.com/benchdrive/govisa/pkg/govisa/attr"

// SerialInstrument is a message-based resource on an ASRL (serial) line. It
// adds the line-configuration attributes a serial port needs beyond timeout
// and termination: baud rate, frame shape, flow control, and the break
// signal.
type SerialInstrument struct {
	*MessageBased
}

// NewSerialInstrument wraps res, defaulting read/write termination as
// NewMessageBased does.
func NewSerialInstrument(res *Resource) *SerialInstrument {
	return &SerialInstrument{MessageBased: NewMessageBased(res)}
}

// SetBaudRate sets the line's baud rate.
func (s *SerialInstrument) SetBaudRate(baud uint32) error {
	return s.SetAttribute(attr.AttrASRLBaud, baud)
}

// SetFrame sets the byte frame shape: data bits, stop bits, and parity.
func (s *SerialInstrument) SetFrame(dataBits uint8, stopBits attr.StopBits, parity attr.Parity) error {
	if err := s.SetAttribute(attr.AttrASRLDataBits, dataBits); err != nil {
		return err
	}
	if err := s.SetAttribute(attr.AttrASRLStopBits, stopBits); err != nil {
		return err
	}
	return s.SetAttribute(attr.AttrASRLParity, parity)
}

// SetFlowControl sets the line's flow-control method(s), bit-combinable.
func (s *SerialInstrument) SetFlowControl(flow attr.FlowControl) error {
	return s.SetAttribute(attr.AttrASRLFlowCntrl, flow)
}

// SetEndInputPolicy controls whether a read terminates on the line's
// last-data-bit marker or on the configured termination character.
func (s *SerialInstrument) SetEndInputPolicy(policy attr.EndInputPolicy) error {
	return s.SetAttribute(attr.AttrASRLEndIn, policy)
}

// SetBreakState asserts or releases the line's break condition.
func (s *SerialInstrument) SetBreakState(asserted bool) error {
	return s.SetAttribute(attr.AttrASRLBreakState, asserted)
}

// SetXonXoffChars sets the software flow-control characters.
func (s *SerialInstrument) SetXonXoffChars(xon, xoff byte) error {
	if err := s.SetAttribute(attr.AttrASRLXonChar, xon); err != nil {
		return err
	}
	return s.SetAttribute(attr.AttrASRLXoffChar, xoff)
}
