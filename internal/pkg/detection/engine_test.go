package detection

import (
	"context"
	"testing"
	"time"
)

// Minimal valid PNG header so the sniffer accepts the payload.
var pngBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestDetect_ReturnsFixedDetections(t *testing.T) {
	e := NewEngine(Config{TTL: time.Hour})

	dets, err := e.Detect(context.Background(), pngBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2", len(dets))
	}
	if dets[0].Class != "person" || dets[0].Confidence != 0.95 {
		t.Fatalf("unexpected first detection: %+v", dets[0])
	}
	if dets[1].Class != "car" || dets[1].BBox.Width != 300 {
		t.Fatalf("unexpected second detection: %+v", dets[1])
	}
}

func TestDetect_RejectsNonImagePayload(t *testing.T) {
	e := NewEngine(Config{TTL: time.Hour})

	if _, err := e.Detect(context.Background(), []byte("<html>nope</html>")); err == nil {
		t.Fatal("expected format error")
	}
	if _, err := e.Detect(context.Background(), nil); err == nil {
		t.Fatal("expected format error for empty payload")
	}
}

func TestEnsureLoaded_CachesWithinTTL(t *testing.T) {
	e := NewEngine(Config{TTL: time.Hour})

	m1, err := e.EnsureLoaded(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2, err := e.EnsureLoaded(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1 != m2 {
		t.Fatal("expected the cached model to be reused within the TTL")
	}
}

func TestEnsureLoaded_ReloadsAfterTTL(t *testing.T) {
	e := NewEngine(Config{TTL: 10 * time.Millisecond})

	m1, _ := e.EnsureLoaded(context.Background())
	time.Sleep(25 * time.Millisecond)
	m2, err := e.EnsureLoaded(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1 == m2 {
		t.Fatal("expected an expired model to be reloaded")
	}
}

func TestInvalidateAndInfo(t *testing.T) {
	e := NewEngine(Config{TTL: time.Hour})

	if info := e.Info(); info.Loaded {
		t.Fatal("expected unloaded state before first use")
	}

	if _, err := e.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := e.Info()
	if !info.Loaded || info.Version != "YOLOv8n" || info.Classes != 80 {
		t.Fatalf("unexpected info after load: %+v", info)
	}

	e.Invalidate()
	if info := e.Info(); info.Loaded {
		t.Fatal("expected unloaded state after Invalidate")
	}
}

func TestReload_ReplacesModel(t *testing.T) {
	e := NewEngine(Config{TTL: time.Hour})

	m1, _ := e.EnsureLoaded(context.Background())
	m2, err := e.Reload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1 == m2 {
		t.Fatal("expected Reload to produce a fresh model")
	}
}

func TestDetect_HonorsContextCancellation(t *testing.T) {
	e := NewEngine(Config{TTL: time.Hour, InferDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Detect(ctx, pngBytes); err == nil {
		t.Fatal("expected context error")
	}
}
