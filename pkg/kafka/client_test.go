package kafka

import (
	"context"
	"testing"
)

func TestWriterIsReusedPerTopic(t *testing.T) {
	c := NewClient([]string{"localhost:9092"})
	a := c.writer(TopicRFIDEvents)
	if b := c.writer(TopicRFIDEvents); a != b {
		t.Fatal("expected one writer per topic")
	}
	if c.writer(TopicIoTTelemetry) == a {
		t.Fatal("topics must not share a writer")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if len(c.writers) != 0 {
		t.Fatalf("writers left after Close: %d", len(c.writers))
	}
}

func TestPublishBatchEmpty(t *testing.T) {
	c := NewClient([]string{"localhost:9092"})
	if err := c.PublishBatch(context.Background(), TopicIoTTelemetry, nil); err != nil {
		t.Fatal(err)
	}
	if len(c.writers) != 0 {
		t.Fatal("empty batch should not open a writer")
	}
}

func TestPublishBatchEncodeError(t *testing.T) {
	c := NewClient([]string{"localhost:9092"})
	err := c.PublishBatch(context.Background(), TopicIoTTelemetry, []Message{{Key: "SB001", Value: make(chan int)}})
	if err == nil {
		t.Fatal("expected encode error")
	}
}
