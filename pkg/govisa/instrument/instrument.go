// Package instrument layers VISA's message-based I/O semantics — read
// termination, write-completion ("send end"), and binary/ASCII value
// framing — on top of a raw backend.Session. It is the component
// applications actually call: rm.Manager hands back a session handle,
// instrument.Open wraps it into a *Resource, and NewMessageBased layers
// fixed '\n' read/write termination defaults on top of that.
package instrument

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

// ErrTimeout names a timed-out operation. No function in this package
// returns it; a backend timeout reaches the caller as that backend's error.
var ErrTimeout = fmt.Errorf("instrument: operation timed out")

// Resource is the common state every open VISA resource carries:
// its parsed name, the raw session moving its bytes, and the timeout
// governing blocking operations.
type Resource struct {
	Record  rname.Record
	Session backend.Session

	timeoutMs uint32
}

// Open wraps an already-opened backend.Session into a Resource, seeding
// its timeout attribute.
func Open(rec rname.Record, sess backend.Session, timeoutMs uint32) *Resource {
	r := &Resource{Record: rec, Session: sess, timeoutMs: timeoutMs}
	_ = sess.SetAttribute(attr.AttrTimeoutValue, timeoutMs)
	return r
}

// SetTimeout updates the resource's operation timeout, in milliseconds.
func (r *Resource) SetTimeout(ms uint32) error {
	r.timeoutMs = ms
	return r.Session.SetAttribute(attr.AttrTimeoutValue, ms)
}

// GetAttribute and SetAttribute are thin, typed-at-the-caller wrappers over
// the backend session, kept here so callers never import pkg/govisa/backend
// directly. Attributes are looked up by static id, never introspected.
func (r *Resource) GetAttribute(id uint32) (any, error) {
	if _, err := attr.Lookup(id); err != nil {
		return nil, err
	}
	return r.Session.GetAttribute(id)
}

func (r *Resource) SetAttribute(id uint32, value any) error {
	return r.Session.SetAttribute(id, value)
}

// Lock acquires a cooperative lock on the underlying resource and returns
// a Releaser whose Release method is meant to run under defer — the
// acquire/defer-release shape used throughout the standard library, e.g.
// sync.Mutex.Lock/Unlock.
type Releaser struct {
	resource  *Resource
	accessKey string
}

func (r *Resource) Lock(kind attr.LockKind, timeoutMs uint32, requestedKey string) (*Releaser, error) {
	key, err := r.Session.Lock(kind, timeoutMs, requestedKey)
	if err != nil {
		return nil, err
	}
	return &Releaser{resource: r, accessKey: key}, nil
}

// AccessKey returns the key a caller can hand to another session opened
// against the same underlying resource to share this lock.
func (l *Releaser) AccessKey() string { return l.accessKey }

// Release unlocks the resource. Calling it more than once is safe; only
// the first call has an effect.
func (l *Releaser) Release() error {
	if l == nil || l.resource == nil {
		return nil
	}
	err := l.resource.Session.Unlock()
	l.resource = nil
	return err
}

// Clear issues a device clear.
func (r *Resource) Clear(ctx context.Context) error {
	return r.Session.Clear(ctx)
}

// Close closes the underlying session. It does not unregister the resource
// from any rm.Manager that opened it; callers using a Manager should close
// through Manager.CloseResource instead so its live-set stays accurate.
func (r *Resource) Close() error {
	return r.Session.Close()
}

// ErrAmbiguousTermination is returned by SetReadTermination when seq's last
// byte also appears earlier in seq: a reader could stop on the earlier
// occurrence and never recognize the sequence is still incomplete.
var ErrAmbiguousTermination = fmt.Errorf("instrument: termination sequence is ambiguous (its last byte repeats earlier in the sequence)")

// MessageBased adds VISA's read/write/query framing on top of Resource:
// termination-sequence-delimited reads, IEEE-488.2 binary block framing,
// and ASCII numeric value streams.
type MessageBased struct {
	*Resource

	// TermChar/TermCharEnabled are kept for the common single-byte case and
	// mirror VI_ATTR_TERMCHAR/VI_ATTR_TERMCHAR_EN directly; ReadTermination
	// is the general sequence these two collapse to when TermCharEnabled.
	TermChar        byte
	TermCharEnabled bool
	ReadTermination []byte

	WriteTermination []byte
	QueryDelay       time.Duration
	ChunkSize        int
}

// NewMessageBased wraps res with default framing: '\n' termination on
// read, enabled, and '\n' appended to every write (the common SCPI
// convention), whatever the bus; callers change them with
// SetReadTermination and WriteTermination.
func NewMessageBased(res *Resource) *MessageBased {
	return &MessageBased{
		Resource:         res,
		TermChar:         '\n',
		TermCharEnabled:  true,
		ReadTermination:  []byte{'\n'},
		WriteTermination: []byte{'\n'},
		ChunkSize:        20480,
	}
}

// SetReadTermination installs seq as the read termination sequence,
// rejecting an ambiguous one. An empty seq disables termination-based read
// detection: a Read returns after a single backend chunk.
func (m *MessageBased) SetReadTermination(seq []byte) error {
	if len(seq) > 1 {
		last := seq[len(seq)-1]
		for _, b := range seq[:len(seq)-1] {
			if b == last {
				return ErrAmbiguousTermination
			}
		}
	}
	m.ReadTermination = seq
	m.TermCharEnabled = len(seq) > 0
	if len(seq) > 0 {
		m.TermChar = seq[len(seq)-1]
	}
	return nil
}

// Write sends data followed by WriteTermination, failing if data already
// ends with a non-empty termination, to prevent double-termination.
func (m *MessageBased) Write(ctx context.Context, data []byte) (int, error) {
	if len(m.WriteTermination) > 0 && bytes.HasSuffix(data, m.WriteTermination) {
		return 0, fmt.Errorf("instrument: message already ends with the write termination sequence")
	}
	framed := append(append([]byte(nil), data...), m.WriteTermination...)
	n, err := m.Session.Write(ctx, framed)
	if n > len(data) {
		n = len(data)
	}
	return n, err
}

// WriteString is a convenience wrapper over Write.
func (m *MessageBased) WriteString(ctx context.Context, s string) (int, error) {
	return m.Write(ctx, []byte(s))
}

// chunkSize returns m.ChunkSize, defaulting to 20480 bytes when unset.
func (m *MessageBased) chunkSize() int {
	if m.ChunkSize > 0 {
		return m.ChunkSize
	}
	return 20480
}

// ReadBytes reads until ReadTermination is seen (when TermCharEnabled) or
// the backend returns a short/empty read signaling end-of-message,
// accumulating at most max bytes (0 means unbounded).
func (m *MessageBased) ReadBytes(ctx context.Context, max int) ([]byte, error) {
	var out []byte
	for max <= 0 || len(out) < max {
		size := m.chunkSize()
		if max > 0 && max-len(out) < size {
			size = max - len(out)
		}
		chunk, err := m.Session.Read(ctx, size)
		if err != nil {
			return out, err
		}
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
		if len(chunk) < size {
			break
		}
		if m.TermCharEnabled && len(m.ReadTermination) > 0 && bytes.Contains(out, m.ReadTermination) {
			break
		}
		if (!m.TermCharEnabled || len(m.ReadTermination) == 0) && max <= 0 {
			break
		}
	}
	return out, nil
}

// Read reads a full response and strips a trailing termination sequence.
func (m *MessageBased) Read(ctx context.Context) (string, error) {
	data, err := m.ReadBytes(ctx, 0)
	if err != nil {
		return "", err
	}
	if m.TermCharEnabled && len(m.ReadTermination) > 0 && bytes.HasSuffix(data, m.ReadTermination) {
		data = data[:len(data)-len(m.ReadTermination)]
	}
	return string(data), nil
}

// Query writes cmd, sleeps QueryDelay if positive, then returns the trimmed
// response — the common write-then-read SCPI idiom.
func (m *MessageBased) Query(ctx context.Context, cmd string) (string, error) {
	if _, err := m.WriteString(ctx, cmd); err != nil {
		return "", err
	}
	if m.QueryDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.QueryDelay):
		}
	}
	return m.Read(ctx)
}
