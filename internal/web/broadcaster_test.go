package web

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func decodeEvent(t *testing.T, msg string) StatusEvent {
	t.Helper()
	var evt StatusEvent
	if err := json.Unmarshal([]byte(msg), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return evt
}

func receive(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg := <-ch:
		return decodeEvent(t, msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
		return StatusEvent{}
	}
}

func TestBroadcaster_SubscribeAndReceive(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Broadcast("info", "hello")

	evt := receive(t, ch)
	if evt.Msg != "hello" || evt.Level != "info" {
		t.Errorf("event = %+v, want info/hello", evt)
	}
	if evt.Time == "" {
		t.Error("event should have a timestamp")
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Broadcast("live", "multi")

	for i, ch := range []<-chan string{ch1, ch2} {
		if evt := receive(t, ch); evt.Msg != "multi" {
			t.Errorf("subscriber %d: msg = %q, want \"multi\"", i, evt.Msg)
		}
	}
}

func TestBroadcaster_ReplaysRecentToNewSubscriber(t *testing.T) {
	b := NewStatusBroadcaster()
	for i := 0; i < replaySize+5; i++ {
		b.Broadcast("info", fmt.Sprintf("line %d", i))
	}

	ch, unsub := b.Subscribe()
	defer unsub()

	first := receive(t, ch)
	if first.Msg != "line 5" {
		t.Errorf("first replayed = %q, want \"line 5\"", first.Msg)
	}
	count := 1
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	if count != replaySize {
		t.Errorf("replayed %d messages, want %d", count, replaySize)
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()
	unsub() // second call is a no-op

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// Broadcasting after unsubscribe should not panic
	b.Broadcast("info", "after unsub")
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 64; i++ {
		b.Broadcast("info", "fill")
	}
	// Must not block: the message is silently dropped for this client.
	b.Broadcast("info", "overflow")

	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	if count != 64 {
		t.Errorf("expected 64 buffered messages, got %d", count)
	}
}

func TestBroadcastWriter_SplitsLinesAndTagsLevels(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	in := "[SunSnap] [ERROR] boom\n  \n[SunSnap] [LIVE] Snapshot rtsp: take=true\n[SunSnap] [INFO] ok\n"
	n, err := w.Write([]byte(in))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(in) {
		t.Errorf("n = %d, want %d", n, len(in))
	}

	want := []struct{ level, msg string }{
		{"error", "[SunSnap] [ERROR] boom"},
		{"live", "[SunSnap] [LIVE] Snapshot rtsp: take=true"},
		{"info", "[SunSnap] [INFO] ok"},
	}
	for _, exp := range want {
		evt := receive(t, ch)
		if evt.Level != exp.level || evt.Msg != exp.msg {
			t.Errorf("event = %+v, want %s/%q", evt, exp.level, exp.msg)
		}
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLevelOf(t *testing.T) {
	cases := map[string]string{
		"[ERROR] x":   "error",
		"[LIVE] x":    "live",
		"[VERBOSE] x": "debug",
		"[TRACE] x":   "debug",
		"[INFO] x":    "info",
		"plain":       "info",
	}
	for in, want := range cases {
		if got := levelOf(in); got != want {
			t.Errorf("levelOf(%q) = %q, want %q", in, got, want)
		}
	}
}
