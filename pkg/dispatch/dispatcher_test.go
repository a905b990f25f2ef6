package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/game-genie/genie-go/pkg/wire"
)

func command(name, msgID string, extra map[string]any) *wire.Command {
	params := map[string]any{}
	if msgID != "" {
		params[wire.MessageIDKey] = msgID
	}
	for k, v := range extra {
		params[k] = v
	}
	return &wire.Command{Command: name, Params: params}
}

func TestDispatchSuccess(t *testing.T) {
	d := New(0, nil)
	err := d.Register("get_scene_context", func(ctx context.Context, params map[string]any) (any, error) {
		return "scene dump", nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	resp := d.Dispatch(context.Background(), command("get_scene_context", "5", nil))
	if resp == nil {
		t.Fatal("no response")
	}
	if !resp.Data.Success || resp.Data.Result != "scene dump" {
		t.Errorf("response data = %+v", resp.Data)
	}
	if resp.Command != "get_scene_context" || resp.MessageID != "5" {
		t.Errorf("response envelope = %+v", resp)
	}
}

func TestDispatchUnknownCommandIgnored(t *testing.T) {
	d := New(0, nil)

	resp := d.Dispatch(context.Background(), command("no_such_command", "3", nil))
	if resp != nil {
		t.Errorf("unknown command produced response %+v", resp)
	}
}

func TestDispatchMissingMessageIDDefaultsToEmpty(t *testing.T) {
	d := New(0, nil)
	d.Register("ping", func(ctx context.Context, params map[string]any) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})

	resp := d.Dispatch(context.Background(), &wire.Command{Command: "ping"})
	if resp == nil {
		t.Fatal("no response")
	}
	if resp.MessageID != "" {
		t.Errorf("message_id = %q, want empty", resp.MessageID)
	}
}

func TestDispatchHandlerError(t *testing.T) {
	d := New(0, nil)
	d.Register("read_file", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New("file not found")
	})

	resp := d.Dispatch(context.Background(), command("read_file", "8", nil))
	if resp == nil {
		t.Fatal("no response")
	}
	if resp.Data.Success {
		t.Error("failure reported as success")
	}
	if resp.Data.Error == "" {
		t.Error("failure response has empty error text")
	}
	if resp.MessageID != "8" {
		t.Errorf("message_id = %q, want 8", resp.MessageID)
	}
}

func TestDispatchHandlerPanicContained(t *testing.T) {
	d := New(0, nil)
	d.Register("edit_prefab", func(ctx context.Context, params map[string]any) (any, error) {
		panic("prefab corrupted")
	})
	d.Register("ping", func(ctx context.Context, params map[string]any) (any, error) {
		return "ok", nil
	})

	resp := d.Dispatch(context.Background(), command("edit_prefab", "1", nil))
	if resp == nil {
		t.Fatal("no response after panic")
	}
	if resp.Data.Success {
		t.Error("panic reported as success")
	}

	// The dispatcher keeps working.
	resp = d.Dispatch(context.Background(), command("ping", "2", nil))
	if resp == nil || !resp.Data.Success {
		t.Errorf("dispatch after panic = %+v", resp)
	}
}

func TestDispatchDuplicateRegistration(t *testing.T) {
	d := New(0, nil)
	fn := func(ctx context.Context, params map[string]any) (any, error) { return nil, nil }

	if err := d.Register("ping", fn); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := d.Register("ping", fn); !errors.Is(err, ErrDuplicateHandler) {
		t.Errorf("duplicate Register = %v, want ErrDuplicateHandler", err)
	}
	if err := d.Register("", fn); !errors.Is(err, wire.ErrEmptyCommand) {
		t.Errorf("empty Register = %v, want ErrEmptyCommand", err)
	}
}

func TestDispatchBoundedInFlight(t *testing.T) {
	const bound = 2

	d := New(bound, nil)

	var running, peak atomic.Int32
	release := make(chan struct{})
	d.Register("slow", func(ctx context.Context, params map[string]any) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), command("slow", "", nil))
		}()
	}

	// Give the tasks time to pile up against the bound.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := peak.Load(); got > bound {
		t.Errorf("peak concurrent handlers = %d, want <= %d", got, bound)
	}
}

func TestDrainWaitsForInFlight(t *testing.T) {
	d := New(0, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	d.Register("slow", func(ctx context.Context, params map[string]any) (any, error) {
		close(started)
		<-release
		return "done", nil
	})

	respCh := make(chan *wire.Response, 1)
	go func() {
		respCh <- d.Dispatch(context.Background(), command("slow", "1", nil))
	}()
	<-started

	drainErr := make(chan error, 1)
	go func() {
		drainErr <- d.Drain(context.Background())
	}()

	// Drain must block on the running handler.
	select {
	case <-drainErr:
		t.Fatal("Drain returned while handler was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	if err := <-drainErr; err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if resp := <-respCh; resp == nil || !resp.Data.Success {
		t.Errorf("in-flight response = %+v", resp)
	}

	// After draining, new dispatches are rejected silently.
	if resp := d.Dispatch(context.Background(), command("slow", "2", nil)); resp != nil {
		t.Errorf("dispatch after Drain = %+v", resp)
	}
}

func TestDrainCoversQueuedDispatch(t *testing.T) {
	d := New(1, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	d.Register("slow", func(ctx context.Context, params map[string]any) (any, error) {
		close(started)
		<-release
		return "done", nil
	})

	var queuedRan atomic.Bool
	d.Register("queued", func(ctx context.Context, params map[string]any) (any, error) {
		queuedRan.Store(true)
		return "late", nil
	})

	go d.Dispatch(context.Background(), command("slow", "1", nil))
	<-started

	// The second dispatch piles up behind the single slot.
	queuedResp := make(chan *wire.Response, 1)
	go func() {
		queuedResp <- d.Dispatch(context.Background(), command("queued", "2", nil))
	}()
	time.Sleep(30 * time.Millisecond)

	drainErr := make(chan error, 1)
	go func() {
		drainErr <- d.Drain(context.Background())
	}()

	// Drain must wait for the queued dispatch too, not just the running one.
	select {
	case <-drainErr:
		t.Fatal("Drain returned with a dispatch still queued")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	if err := <-drainErr; err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	// Once draining has begun, the queued handler never runs; its caller
	// gets a failure response instead.
	select {
	case resp := <-queuedResp:
		if resp == nil || resp.Data.Success {
			t.Fatalf("queued response = %+v, want failure", resp)
		}
		if resp.MessageID != "2" {
			t.Errorf("queued response message_id = %q, want 2", resp.MessageID)
		}
	case <-time.After(time.Second):
		t.Fatal("queued dispatch never returned")
	}
	if queuedRan.Load() {
		t.Error("queued handler ran after Drain began")
	}
}

func TestDrainTimeout(t *testing.T) {
	d := New(0, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	d.Register("stuck", func(ctx context.Context, params map[string]any) (any, error) {
		close(started)
		<-release
		return nil, nil
	})

	go d.Dispatch(context.Background(), command("stuck", "", nil))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := d.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain = %v, want DeadlineExceeded", err)
	}
}
