package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/novelAuth/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type panicSink struct {
	mu   sync.Mutex
	seen []string
}

func (s *panicSink) Emit(_ context.Context, e Event) {
	if e.EventType == "boom" {
		panic("sink failure")
	}
	s.mu.Lock()
	s.seen = append(s.seen, e.EventType)
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "ignored"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero")
	}
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	sink := &panicSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), Event{EventType: "first"})
	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "second"})
	d.Close()

	if d.SinkPanics() != 1 {
		t.Fatalf("expected 1 sink panic, got %d", d.SinkPanics())
	}
	if d.Delivered() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", d.Delivered())
	}
	if strings.Join(sink.seen, ",") != "first,second" {
		t.Fatalf("unexpected delivery order: %v", sink.seen)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-block })
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "flood"})
	}
	close(block)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and a one-slot buffer")
	}
	if d.Dropped()+d.Delivered() != 10 {
		t.Fatalf("dropped %d + delivered %d != 10", d.Dropped(), d.Delivered())
	}
}

func TestDispatcherEmitAfterCloseIgnored(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})
	select {
	case e := <-sink.Events():
		t.Fatalf("unexpected event after close: %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestJSONWriterSinkOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventID: "e1", EventType: "login_success", Success: true})
	sink.Emit(context.Background(), Event{EventID: "e2", EventType: "login_failure", Error: "invalid_credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got Event
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventID != "e2" || got.Error != "invalid_credentials" || got.Success {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestLoggerSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLoggerSink(logging.NewZapLogger(zap.New(core)))

	sink.Emit(context.Background(), Event{
		EventID:   "e1",
		EventType: "premium_changed",
		UserID:    "u-1",
		Success:   true,
		Metadata:  map[string]string{"target_id": "u-2"},
	})
	sink.Emit(context.Background(), Event{
		EventID:   "e2",
		EventType: "login_failure",
		Error:     "invalid_credentials",
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != "premium_changed" {
		t.Fatalf("unexpected success entry: %+v", entries[0].Entry)
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "audit" || fields["meta.target_id"] != "u-2" {
		t.Fatalf("unexpected success fields: %v", fields)
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "invalid_credentials" {
		t.Fatalf("unexpected failure entry: %+v %v", entries[1].Entry, entries[1].ContextMap())
	}
}

type sinkFunc func(context.Context, Event)

func (f sinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }
