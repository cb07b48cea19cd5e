// Package foreign binds to a vendor-supplied VISA shared library (NI-VISA,
// Keysight IO Libraries, R&S VISA, ...) through cgo and dlopen, the same
// pattern gousb itself uses to reach libusb through a cgo bridge — here
// there is no Go-native client library for the wire protocol at all, so
// cgo against the platform's dynamic loader is the mechanism, not a
// competing library choice. It registers under the empty backend name, the
// default a resource manager selects when no other backend is named.
package foreign

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stdint.h>

typedef int32_t (*viOpenDefaultRM_fn)(uint32_t *session);
typedef int32_t (*viOpen_fn)(uint32_t rm, const char *name, uint32_t mode, uint32_t timeout, uint32_t *session);
typedef int32_t (*viClose_fn)(uint32_t session);
typedef int32_t (*viWrite_fn)(uint32_t session, const unsigned char *buf, uint32_t count, uint32_t *retCount);
typedef int32_t (*viRead_fn)(uint32_t session, unsigned char *buf, uint32_t count, uint32_t *retCount);
typedef int32_t (*viSetAttribute_fn)(uint32_t session, uint32_t attr, uint64_t value);
typedef int32_t (*viGetAttribute_fn)(uint32_t session, uint32_t attr, uint64_t *value);
typedef int32_t (*viClear_fn)(uint32_t session);
typedef int32_t (*viLock_fn)(uint32_t session, uint32_t mode, uint32_t timeout, const char *key, char *accessKey);
typedef int32_t (*viUnlock_fn)(uint32_t session);
typedef int32_t (*viFindRsrc_fn)(uint32_t rm, const char *expr, uint32_t *findList, uint32_t *count, char *desc);
typedef int32_t (*viFindNext_fn)(uint32_t findList, char *desc);

static int32_t call_viOpenDefaultRM(void *fn, uint32_t *session) {
	return ((viOpenDefaultRM_fn)fn)(session);
}
static int32_t call_viOpen(void *fn, uint32_t rm, const char *name, uint32_t mode, uint32_t timeout, uint32_t *session) {
	return ((viOpen_fn)fn)(rm, name, mode, timeout, session);
}
static int32_t call_viClose(void *fn, uint32_t session) {
	return ((viClose_fn)fn)(session);
}
static int32_t call_viWrite(void *fn, uint32_t session, const unsigned char *buf, uint32_t count, uint32_t *retCount) {
	return ((viWrite_fn)fn)(session, buf, count, retCount);
}
static int32_t call_viRead(void *fn, uint32_t session, unsigned char *buf, uint32_t count, uint32_t *retCount) {
	return ((viRead_fn)fn)(session, buf, count, retCount);
}
static int32_t call_viSetAttribute(void *fn, uint32_t session, uint32_t attr, uint64_t value) {
	return ((viSetAttribute_fn)fn)(session, attr, value);
}
static int32_t call_viGetAttribute(void *fn, uint32_t session, uint32_t attr, uint64_t *value) {
	return ((viGetAttribute_fn)fn)(session, attr, value);
}
static int32_t call_viClear(void *fn, uint32_t session) {
	return ((viClear_fn)fn)(session);
}
static int32_t call_viLock(void *fn, uint32_t session, uint32_t mode, uint32_t timeout, const char *key, char *accessKey) {
	return ((viLock_fn)fn)(session, mode, timeout, key, accessKey);
}
static int32_t call_viUnlock(void *fn, uint32_t session) {
	return ((viUnlock_fn)fn)(session);
}
static int32_t call_viFindRsrc(void *fn, uint32_t rm, const char *expr, uint32_t *findList, uint32_t *count, char *desc) {
	return ((viFindRsrc_fn)fn)(rm, expr, findList, count, desc);
}
static int32_t call_viFindNext(void *fn, uint32_t findList, char *desc) {
	return ((viFindNext_fn)fn)(findList, desc);
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
	"github.com/benchdrive/govisa/pkg/govisa/backend"
	"github.com/benchdrive/govisa/pkg/govisa/rname"
)

func init() {
	backend.Register("", func(options string) (backend.Backend, error) {
		return Open(options)
	})
}

// candidatePaths lists platform-conventional VISA shared library locations
// consulted when options does not name a path explicitly.
var candidatePaths = []string{
	"/usr/lib/x86_64-linux-gnu/libvisa.so",
	"/usr/local/lib/libvisa.so",
	"/usr/lib/libiovisa.so",
	"libvisa.so",
}

// handle refcounts a dlopen'd library so multiple resource managers sharing
// the same path do not each dlopen their own copy.
type handle struct {
	path string
	lib  unsafe.Pointer
	refs int

	fnOpenDefaultRM unsafe.Pointer
	fnOpen          unsafe.Pointer
	fnClose         unsafe.Pointer
	fnWrite         unsafe.Pointer
	fnRead          unsafe.Pointer
	fnSetAttribute  unsafe.Pointer
	fnGetAttribute  unsafe.Pointer
	fnClear         unsafe.Pointer
	fnLock          unsafe.Pointer
	fnUnlock        unsafe.Pointer
	fnFindRsrc      unsafe.Pointer
	fnFindNext      unsafe.Pointer
}

var (
	handlesMu sync.Mutex
	handles   = map[string]*handle{}
)

func acquireHandle(path string) (*handle, error) {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	if h, ok := handles[path]; ok {
		h.refs++
		return h, nil
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	lib := C.dlopen(cPath, C.RTLD_NOW)
	if lib == nil {
		return nil, fmt.Errorf("foreign: dlopen %q failed: %s", path, C.GoString(C.dlerror()))
	}

	h := &handle{path: path, lib: lib, refs: 1}
	sym := func(name string) (unsafe.Pointer, error) {
		cName := C.CString(name)
		defer C.free(unsafe.Pointer(cName))
		p := C.dlsym(lib, cName)
		if p == nil {
			return nil, fmt.Errorf("foreign: symbol %q not found in %q", name, path)
		}
		return p, nil
	}

	type binding struct {
		name string
		dest *unsafe.Pointer
	}
	bindings := []binding{
		{"viOpenDefaultRM", &h.fnOpenDefaultRM},
		{"viOpen", &h.fnOpen},
		{"viClose", &h.fnClose},
		{"viWrite", &h.fnWrite},
		{"viRead", &h.fnRead},
		{"viSetAttribute", &h.fnSetAttribute},
		{"viGetAttribute", &h.fnGetAttribute},
		{"viClear", &h.fnClear},
		{"viLock", &h.fnLock},
		{"viUnlock", &h.fnUnlock},
		{"viFindRsrc", &h.fnFindRsrc},
		{"viFindNext", &h.fnFindNext},
	}
	for _, b := range bindings {
		p, err := sym(b.name)
		if err != nil {
			C.dlclose(lib)
			return nil, err
		}
		*b.dest = p
	}

	handles[path] = h
	return h, nil
}

func releaseHandle(h *handle) error {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	h.refs--
	if h.refs > 0 {
		return nil
	}
	delete(handles, h.path)
	if C.dlclose(h.lib) != 0 {
		return fmt.Errorf("foreign: dlclose %q failed: %s", h.path, C.GoString(C.dlerror()))
	}
	return nil
}

// Backend wraps a single dlopen'd VISA library and the default resource
// manager session opened against it.
type Backend struct {
	h  *handle
	rm C.uint32_t
}

// Open resolves options (a library path, or empty to search candidatePaths)
// and opens the library's default resource manager.
func Open(path string) (*Backend, error) {
	if path == "" {
		var lastErr error
		for _, p := range candidatePaths {
			b, err := Open(p)
			if err == nil {
				return b, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("foreign: no VISA shared library found: %w", lastErr)
	}

	h, err := acquireHandle(path)
	if err != nil {
		return nil, err
	}

	var rm C.uint32_t
	status := C.call_viOpenDefaultRM(h.fnOpenDefaultRM, (*C.uint32_t)(&rm))
	if status < 0 {
		releaseHandle(h)
		return nil, fmt.Errorf("foreign: viOpenDefaultRM failed: status %d", status)
	}

	return &Backend{h: h, rm: rm}, nil
}

func (b *Backend) Name() string { return "" }

func (b *Backend) Close() error {
	C.call_viClose(b.h.fnClose, b.rm)
	return releaseHandle(b.h)
}

func (b *Backend) FindResources(ctx context.Context) ([]string, error) {
	var findList, count C.uint32_t
	desc := make([]C.char, 256)
	expr := C.CString("?*")
	defer C.free(unsafe.Pointer(expr))

	status := C.call_viFindRsrc(b.h.fnFindRsrc, b.rm, expr, &findList, &count, &desc[0])
	if status < 0 {
		return nil, fmt.Errorf("foreign: viFindRsrc failed: status %d", status)
	}
	if count == 0 {
		return nil, nil
	}

	out := []string{C.GoString(&desc[0])}
	for i := C.uint32_t(1); i < count; i++ {
		status := C.call_viFindNext(b.h.fnFindNext, findList, &desc[0])
		if status < 0 {
			break
		}
		out = append(out, C.GoString(&desc[0]))
	}
	return out, nil
}

func (b *Backend) OpenSession(ctx context.Context, rec rname.Record, mode attr.AccessMode, timeoutMs uint32) (backend.Session, error) {
	name := C.CString(rname.Render(rec))
	defer C.free(unsafe.Pointer(name))

	var vi C.uint32_t
	status := C.call_viOpen(b.h.fnOpen, b.rm, name, C.uint32_t(mode), C.uint32_t(timeoutMs), &vi)
	if status < 0 {
		return nil, fmt.Errorf("foreign: viOpen(%s) failed: status %d", rname.Render(rec), status)
	}
	return &session{h: b.h, vi: vi}, nil
}

type session struct {
	h  *handle
	vi C.uint32_t
}

func (s *session) Write(ctx context.Context, data []byte) (int, error) {
	var retCount C.uint32_t
	var ptr *C.uchar
	if len(data) > 0 {
		ptr = (*C.uchar)(unsafe.Pointer(&data[0]))
	}
	status := C.call_viWrite(s.h.fnWrite, s.vi, ptr, C.uint32_t(len(data)), &retCount)
	if status < 0 {
		return int(retCount), fmt.Errorf("foreign: viWrite failed: status %d", status)
	}
	return int(retCount), nil
}

func (s *session) Read(ctx context.Context, max int) ([]byte, error) {
	if max <= 0 {
		max = 4096
	}
	buf := make([]byte, max)
	var retCount C.uint32_t
	status := C.call_viRead(s.h.fnRead, s.vi, (*C.uchar)(unsafe.Pointer(&buf[0])), C.uint32_t(max), &retCount)
	if status < 0 {
		return nil, fmt.Errorf("foreign: viRead failed: status %d", status)
	}
	return buf[:retCount], nil
}

func (s *session) GetAttribute(id uint32) (any, error) {
	var value C.uint64_t
	status := C.call_viGetAttribute(s.h.fnGetAttribute, s.vi, C.uint32_t(id), &value)
	if status < 0 {
		return nil, fmt.Errorf("foreign: viGetAttribute(0x%08X) failed: status %d", id, status)
	}
	return uint64(value), nil
}

func (s *session) SetAttribute(id uint32, value any) error {
	v, err := toUint64(value)
	if err != nil {
		return err
	}
	status := C.call_viSetAttribute(s.h.fnSetAttribute, s.vi, C.uint32_t(id), C.uint64_t(v))
	if status < 0 {
		return fmt.Errorf("foreign: viSetAttribute(0x%08X) failed: status %d", id, status)
	}
	return nil
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case int:
		return uint64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("foreign: cannot convert %T to a VISA attribute value", v)
	}
}

func (s *session) Clear(ctx context.Context) error {
	status := C.call_viClear(s.h.fnClear, s.vi)
	if status < 0 {
		return fmt.Errorf("foreign: viClear failed: status %d", status)
	}
	return nil
}

func (s *session) Lock(kind attr.LockKind, timeoutMs uint32, requestedKey string) (string, error) {
	mode := C.uint32_t(1) // exclusive
	if kind == attr.LockShared {
		mode = 2
	}
	cKey := C.CString(requestedKey)
	defer C.free(unsafe.Pointer(cKey))
	accessKey := make([]C.char, 256)

	status := C.call_viLock(s.h.fnLock, s.vi, mode, C.uint32_t(timeoutMs), cKey, &accessKey[0])
	if status < 0 {
		return "", fmt.Errorf("foreign: viLock failed: status %d", status)
	}
	return C.GoString(&accessKey[0]), nil
}

func (s *session) Unlock() error {
	status := C.call_viUnlock(s.h.fnUnlock, s.vi)
	if status < 0 {
		return fmt.Errorf("foreign: viUnlock failed: status %d", status)
	}
	return nil
}

func (s *session) Close() error {
	status := C.call_viClose(s.h.fnClose, s.vi)
	if status < 0 {
		return fmt.Errorf("foreign: viClose failed: status %d", status)
	}
	return nil
}
