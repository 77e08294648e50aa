package netio

import "testing"

func TestTrySendRespectsCapacity(t *testing.T) {
	o := NewOutbound(1)
	if !o.TrySend([]byte("a")) {
		t.Fatal("expected first TrySend to succeed")
	}
	if o.TrySend([]byte("b")) {
		t.Fatal("expected second TrySend to be dropped when full")
	}
}

func TestSendAndRecv(t *testing.T) {
	o := NewOutbound(4)
	o.Send([]byte("hello"))
	frame, ok := o.Recv()
	if !ok || string(frame) != "hello" {
		t.Fatalf("got (%q,%v), want (hello,true)", frame, ok)
	}
}

func TestCloseUnblocksSendAndRecv(t *testing.T) {
	o := NewOutbound(0)
	done := make(chan struct{})
	go func() {
		o.Send([]byte("stuck")) // capacity 0: blocks until closed
		close(done)
	}()
	o.Close()
	<-done

	if _, ok := o.Recv(); ok {
		t.Fatal("expected Recv to report closed on an empty, closed queue")
	}
}

func TestRecvDrainsBeforeReportingClosed(t *testing.T) {
	o := NewOutbound(2)
	o.TrySend([]byte("x"))
	o.Close()
	frame, ok := o.Recv()
	if !ok || string(frame) != "x" {
		t.Fatalf("expected buffered frame to be drained first, got (%q,%v)", frame, ok)
	}
	if _, ok := o.Recv(); ok {
		t.Fatal("expected closed after drain")
	}
}
