package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestHeaderCarrier_SetAppends(t *testing.T) {
	c := &headerCarrier{headers: []kafka.Header{
		{Key: HeaderEventID, Value: []byte("e-1")},
	}}
	c.Set("traceparent", "00-abc-def-01")

	if len(c.headers) != 2 {
		t.Fatalf("expected appended header to survive, got %d headers", len(c.headers))
	}
	if c.Get("traceparent") != "00-abc-def-01" {
		t.Fatalf("traceparent: got %q", c.Get("traceparent"))
	}
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	c := &headerCarrier{headers: []kafka.Header{
		{Key: "traceparent", Value: []byte("00-old-old-00")},
	}}
	c.Set("traceparent", "00-new-new-01")

	if len(c.headers) != 1 {
		t.Fatalf("expected overwrite, got %d headers", len(c.headers))
	}
	if c.Get("traceparent") != "00-new-new-01" {
		t.Fatalf("traceparent: got %q", c.Get("traceparent"))
	}
}
