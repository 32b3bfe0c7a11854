package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeOpener struct {
	blobs map[string]string
}

func (f fakeOpener) Open(_ context.Context, key string) (io.ReadCloser, int64, error) {
	contents, ok := f.blobs[key]
	if !ok {
		return nil, 0, errors.New("blob not found")
	}
	return io.NopCloser(strings.NewReader(contents)), int64(len(contents)), nil
}

type fakeDest struct {
	mu    sync.Mutex
	saved map[string]string
}

func (f *fakeDest) Save(_ context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[key] = string(data)
	return "fake://" + key, nil
}

func (f *fakeDest) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contents, ok := f.saved[key]
	return contents, ok
}

func TestMirrorReplicatesEnqueuedBlobs(t *testing.T) {
	source := fakeOpener{blobs: map[string]string{
		"videos/1/data": "first",
		"videos/2/data": "second",
	}}
	dest := &fakeDest{}
	mirror := NewMirror(source, dest, MirrorConfig{QueueSize: 4, Workers: 2}, nil)

	for key := range source.blobs {
		if err := mirror.Enqueue(context.Background(), key); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mirror.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for key, want := range source.blobs {
		got, ok := dest.get(key)
		if !ok {
			t.Fatalf("expected %s replicated", key)
		}
		if got != want {
			t.Fatalf("blob %s: expected %q got %q", key, want, got)
		}
	}
}

func TestMirrorShutdownDrainsQueue(t *testing.T) {
	source := fakeOpener{blobs: map[string]string{"videos/1/data": "payload"}}
	dest := &fakeDest{}
	mirror := NewMirror(source, dest, MirrorConfig{QueueSize: 8, Workers: 1}, nil)

	if err := mirror.Enqueue(context.Background(), "videos/1/data"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mirror.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if _, ok := dest.get("videos/1/data"); !ok {
		t.Fatal("expected queued blob replicated before shutdown returned")
	}
}

func TestMirrorEnqueueAfterShutdown(t *testing.T) {
	mirror := NewMirror(fakeOpener{}, &fakeDest{}, MirrorConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mirror.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := mirror.Enqueue(context.Background(), "videos/1/data"); err == nil {
		t.Fatal("expected error enqueuing after shutdown")
	}
}

func TestMirrorConcurrentEnqueueAndShutdown(t *testing.T) {
	keys := make(map[string]string)
	for i := 0; i < 64; i++ {
		keys[fmt.Sprintf("videos/%d/data", i)] = fmt.Sprintf("payload-%d", i)
	}
	source := fakeOpener{blobs: keys}
	dest := &fakeDest{}
	mirror := NewMirror(source, dest, MirrorConfig{QueueSize: 4, Workers: 2}, nil)

	accepted := make(chan string, len(keys))
	var wg sync.WaitGroup
	for key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if err := mirror.Enqueue(context.Background(), key); err == nil {
				accepted <- key
			} else if !errors.Is(err, errMirrorClosed) {
				t.Errorf("enqueue %s: %v", key, err)
			}
		}(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mirror.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	wg.Wait()
	close(accepted)

	// Every accepted enqueue must have replicated before Shutdown returned.
	for key := range accepted {
		if got, ok := dest.get(key); !ok || got != keys[key] {
			t.Fatalf("accepted blob %s not replicated (got %q, ok=%v)", key, got, ok)
		}
	}
}

func TestMirrorEnqueueHonorsCallerContext(t *testing.T) {
	mirror := NewMirror(fakeOpener{}, &fakeDest{}, MirrorConfig{}, nil)
	defer mirror.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := mirror.Enqueue(ctx, "videos/1/data"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
}

func TestMirrorSkipsMissingSourceBlob(t *testing.T) {
	source := fakeOpener{blobs: map[string]string{}}
	dest := &fakeDest{}
	mirror := NewMirror(source, dest, MirrorConfig{}, nil)

	if err := mirror.Enqueue(context.Background(), "videos/404/data"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mirror.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if _, ok := dest.get("videos/404/data"); ok {
		t.Fatal("expected missing source blob not replicated")
	}
}
