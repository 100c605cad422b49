package events

import (
	"context"
	"testing"
)

func TestNewPublisherRejectsBadURL(t *testing.T) {
	if _, err := NewPublisher("not-a-url", "chat"); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	if err := p.Publish(context.Background(), "chat.created", map[string]string{"id": "1"}); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nop close: %v", err)
	}
}
