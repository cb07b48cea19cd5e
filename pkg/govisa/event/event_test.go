package event

import (
	"testing"
	"time"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
)

func TestEnableEventIsIdempotent(t *testing.T) {
	d := New("resource", nil)
	if err := d.EnableEvent(attr.EventServiceRequest, attr.MechanismQueue); err != nil {
		t.Fatalf("EnableEvent returned error: %v", err)
	}
	if err := d.EnableEvent(attr.EventServiceRequest, attr.MechanismQueue); err != nil {
		t.Fatalf("second EnableEvent returned error: %v", err)
	}
	d.Deliver(attr.EventServiceRequest, "srq")
	resp, err := d.Wait(attr.EventServiceRequest, 100)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if resp.TimedOut {
		t.Fatalf("Wait timed out, want a delivered event")
	}
	if resp.Event.Context != "srq" {
		t.Fatalf("Event.Context = %v, want %q", resp.Event.Context, "srq")
	}
}

func TestWaitTimesOutWithoutError(t *testing.T) {
	d := New("resource", nil)
	if err := d.EnableEvent(attr.EventTrigger, attr.MechanismQueue); err != nil {
		t.Fatalf("EnableEvent returned error: %v", err)
	}
	resp, err := d.Wait(attr.EventTrigger, 20)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if !resp.TimedOut {
		t.Fatalf("expected TimedOut = true")
	}
	if !resp.Event.TimedOut || resp.Event.Type != attr.EventTrigger {
		t.Fatalf("synthesized timeout event = %+v", resp.Event)
	}
}

func TestHandlerInvocationAndUninstall(t *testing.T) {
	d := New("resource", nil)
	if err := d.EnableEvent(attr.EventException, attr.MechanismHandler); err != nil {
		t.Fatalf("EnableEvent returned error: %v", err)
	}

	calls := make(chan Event, 4)
	handle := d.InstallHandler(attr.EventException, func(resource any, ev Event, userHandle any) {
		calls <- ev
	}, "user-data")

	d.Deliver(attr.EventException, "boom")
	select {
	case ev := <-calls:
		if ev.Context != "boom" {
			t.Fatalf("handler saw Context = %v, want %q", ev.Context, "boom")
		}
	case <-time.After(time.Second):
		t.Fatalf("handler was not invoked")
	}

	if err := d.UninstallHandler(attr.EventException, handle); err != nil {
		t.Fatalf("UninstallHandler returned error: %v", err)
	}
	d.Deliver(attr.EventException, "second")
	select {
	case ev := <-calls:
		t.Fatalf("handler fired after uninstall: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDistinctHandlesForSameHandler(t *testing.T) {
	d := New("resource", nil)
	fn := func(resource any, ev Event, userHandle any) {}
	h1 := d.InstallHandler(attr.EventTrigger, fn, nil)
	h2 := d.InstallHandler(attr.EventTrigger, fn, nil)
	if h1 == h2 {
		t.Fatalf("expected distinct handles, got the same one twice")
	}
}

func TestHandlerPanicRoutedToErrorHook(t *testing.T) {
	errs := make(chan error, 1)
	d := New("resource", func(err error) { errs <- err })
	if err := d.EnableEvent(attr.EventIOCompletion, attr.MechanismHandler); err != nil {
		t.Fatalf("EnableEvent returned error: %v", err)
	}
	d.InstallHandler(attr.EventIOCompletion, func(resource any, ev Event, userHandle any) {
		panic("handler exploded")
	}, nil)

	d.Deliver(attr.EventIOCompletion, nil)
	select {
	case err := <-errs:
		var herr *HandlerError
		if !asHandlerError(err, &herr) {
			t.Fatalf("expected a *HandlerError, got %T: %v", err, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("error hook was never called")
	}
}

func asHandlerError(err error, out **HandlerError) bool {
	he, ok := err.(*HandlerError)
	if ok {
		*out = he
	}
	return ok
}

func TestCloseDisablesEveryType(t *testing.T) {
	d := New("resource", nil)
	if err := d.EnableEvent(attr.EventTrigger, attr.MechanismQueue); err != nil {
		t.Fatalf("EnableEvent returned error: %v", err)
	}
	d.Close()
	if _, err := d.Wait(attr.EventTrigger, 10); err == nil {
		t.Fatalf("expected an error waiting on a type Close disabled")
	}
}
