package monitor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/reactorctl/internal/names"
	"github.com/danmuck/reactorctl/internal/protocol/frame"
	"github.com/danmuck/reactorctl/internal/protocol/textproto"
	"github.com/danmuck/reactorctl/internal/shell"
	"github.com/danmuck/reactorctl/internal/testutil/testlog"
	"github.com/danmuck/reactorctl/internal/trace"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBroadcaster) Broadcast(eventType string, data any) {
	r.mu.Lock()
	r.events = append(r.events, eventType)
	r.mu.Unlock()
}

func (r *recordingBroadcaster) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func textMessage(content string) []byte {
	return append(append([]byte{textproto.STX}, content...), textproto.ETX)
}

func runSession(t *testing.T, input func(conn net.Conn)) (*Monitor, *recordingBroadcaster) {
	t.Helper()
	testlog.Start(t)
	client, server := net.Pipe()
	rec := &recordingBroadcaster{}
	mon := New(server, Options{
		Registry:    names.NewRegistry(),
		Broadcaster: rec,
		EventBuffer: 64,
	})

	done := make(chan error, 1)
	go func() { done <- mon.Run(context.Background()) }()

	input(client)
	_ = client.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
	}
	return mon, rec
}

func TestSessionDecodesBinarySignals(t *testing.T) {
	sig := frame.Signal{ID: 0x0101, SrcID: 3, Timestamp: 1000}
	mon, rec := runSession(t, func(conn net.Conn) {
		_, _ = conn.Write(frame.Encode(sig))
	})

	records := mon.Records()
	if len(records) != 1 {
		t.Fatalf("records: %+v", records)
	}
	got := records[0]
	if got.Kind != trace.KindSignalEmit || got.SignalID != 0x0101 || got.EntityID != 3 {
		t.Fatalf("record: %+v", got)
	}
	if types := rec.types(); len(types) != 1 || types[0] != "signal" {
		t.Fatalf("broadcasts: %v", types)
	}
}

func TestSessionRoutesTextMessages(t *testing.T) {
	mon, rec := runSession(t, func(conn net.Conn) {
		_, _ = conn.Write(textMessage("UN:3,pump_ctrl"))
		_, _ = conn.Write(textMessage("UG:257,SIG_FLOW_HIGH"))
		_, _ = conn.Write(textMessage("UR:4,3,257,1,2000"))
		_, _ = conn.Write(textMessage("UM:10240,8192"))
	})

	if name, _ := mon.Names().ResolveEntity(3); name != "pump_ctrl" {
		t.Fatalf("entity name: %q", name)
	}
	if name, _ := mon.Names().ResolveSignal(257); name != "SIG_FLOW_HIGH" {
		t.Fatalf("signal name: %q", name)
	}

	records := mon.Records()
	if len(records) != 1 || records[0].Kind != trace.KindSignalRecv || records[0].SignalID != 257 {
		t.Fatalf("records: %+v", records)
	}

	mem, ok := mon.Memory()
	if !ok || mem.FreeHeap != 10240 || mem.MinFreeHeap != 8192 {
		t.Fatalf("memory: %+v ok=%v", mem, ok)
	}

	types := rec.types()
	if len(types) != 2 || types[0] != "trace" || types[1] != "memory" {
		t.Fatalf("broadcasts: %v", types)
	}
}

func TestSessionInterleavedChannels(t *testing.T) {
	mon, _ := runSession(t, func(conn net.Conn) {
		_, _ = conn.Write(frame.Encode(frame.Signal{ID: 1, SrcID: 2, Timestamp: 10}))
		_, _ = conn.Write(textMessage("UR:2,5,1,3,20"))
		_, _ = conn.Write(frame.Encode(frame.Signal{ID: 6, SrcID: 2, Timestamp: 30}))
	})

	records := mon.Records()
	if len(records) != 3 {
		t.Fatalf("records: %+v", records)
	}
	if records[1].Kind != trace.KindStateChange || records[1].EntityID != 5 {
		t.Fatalf("trace record: %+v", records[1])
	}
}

func TestRecordRingEviction(t *testing.T) {
	client, server := net.Pipe()
	mon := New(server, Options{EventBuffer: 4})
	done := make(chan error, 1)
	go func() { done <- mon.Run(context.Background()) }()

	for i := 0; i < 6; i++ {
		_, _ = client.Write(textMessage(fmt.Sprintf("UR:4,1,%d,0,%d", i, i*10)))
	}
	_ = client.Close()
	<-done

	records := mon.Records()
	if len(records) != 4 {
		t.Fatalf("records: %+v", records)
	}
	// Oldest two evicted; order preserved.
	if records[0].SignalID != 2 || records[3].SignalID != 5 {
		t.Fatalf("eviction order: %+v", records)
	}
}

func TestAnalyzeUsesLiveNames(t *testing.T) {
	mon, _ := runSession(t, func(conn net.Conn) {
		_, _ = conn.Write(textMessage("UN:1,core_sched"))
		_, _ = conn.Write(textMessage("UR:4,1,6,1,100")) // SIG_SYS_DYING
	})

	a := mon.Analyze()
	if len(a.Issues) != 1 || a.Issues[0].Entity != "core_sched" {
		t.Fatalf("issues: %+v", a.Issues)
	}
}

func TestSendSignalAndCommand(t *testing.T) {
	client, server := net.Pipe()
	mon := New(server, Options{EventBuffer: 4})
	go func() { _ = mon.Run(context.Background()) }()

	go func() {
		_ = mon.SendSignal(frame.Signal{ID: 9, SrcID: 0, Timestamp: 0})
		_ = mon.SendCommand(shell.TraceStart())
		_ = client.Close()
	}()

	var got []byte
	buf := make([]byte, 256)
	for {
		n, err := client.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			break
		}
	}

	res, err := frame.Decode(got)
	if err != nil {
		t.Fatalf("decode injected frame: %v", err)
	}
	if res.Signal.ID != 9 {
		t.Fatalf("signal: %+v", res.Signal)
	}
	if string(got[res.Consumed:]) != "trace start\n" {
		t.Fatalf("command bytes: %q", got[res.Consumed:])
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	mon, _ := runSession(t, func(conn net.Conn) {})
	if err := mon.SendCommand(shell.Status()); err == nil {
		t.Fatalf("expected error after close")
	}
}
