package mq

import (
	"testing"
	"time"
)

func TestToKafkaMessage(t *testing.T) {
	msg := NewMessage([]byte(`{"a":1}`))
	msg.ID = "sub-1"
	msg.SetHeader("event", "submission.recorded")
	msg.Timestamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	km := toKafkaMessage("judge.submissions", msg)
	if km.Topic != "judge.submissions" || string(km.Key) != "sub-1" || string(km.Value) != `{"a":1}` {
		t.Fatalf("unexpected kafka message: %+v", km)
	}
	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event"] != "submission.recorded" || headers[headerID] != "sub-1" {
		t.Fatalf("headers = %v", headers)
	}
	if headers[headerTimestamp] != "2024-01-02T03:04:05Z" {
		t.Fatalf("timestamp header = %q", headers[headerTimestamp])
	}
}

func TestNewKafkaProducerRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaProducer(KafkaConfig{}); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
