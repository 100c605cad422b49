package websocket

import (
	"encoding/json"
	"testing"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
)

func TestEnqueueRejectsWhenQueueIsFull(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(uuid.New(), 8)
	c.hub = hub
	c.inbound = make(chan InboundFrame, 1)
	hub.Register(c)
	waitFor(t, "registration", func() bool { return hub.ConnectionCount() == 1 })

	first := InboundFrame{Event: "typing", Data: json.RawMessage(`{}`)}
	if !c.enqueue(first) {
		t.Fatalf("first frame should fit the queue")
	}

	second := InboundFrame{Event: "send_message", Data: json.RawMessage(`{}`), ClientMessageID: "c-2"}
	if c.enqueue(second) {
		t.Fatalf("second frame should be rejected while the queue is full")
	}

	frame := receive(t, c)
	if frame.Event != dto.EventError {
		t.Fatalf("expected error frame, got %q", frame.Event)
	}
	raw, _ := json.Marshal(frame.Data)
	var payload dto.ErrorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Code != dto.ErrorCodeBusy || payload.Event != "send_message" || payload.ClientMessageID != "c-2" {
		t.Fatalf("unexpected busy payload %+v", payload)
	}

	if queued := <-c.inbound; queued.Event != "typing" {
		t.Fatalf("queued frame changed: %q", queued.Event)
	}
}
