package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "inventory.updated"}
	c := (*natsHeaderCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("empty carrier should return empty value, got %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Errorf("empty carrier keys = %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Errorf("keys = %v", keys)
	}

	// The header lands on the message itself for the wire.
	if msg.Header.Get("traceparent") != "00-abc-def-01" {
		t.Error("carrier must write through to the message header")
	}
}
