package queue_test

import (
	"testing"

	"github.com/yeisme/imagevault/pkg/queue"
)

// TestEncodeDecodeEnvelope 测试信封编解码往返.
func TestEncodeDecodeEnvelope(t *testing.T) {
	payload := queue.ProcessRequestedPayload{AssetID: "01JABCDEF", Attempt: 2}
	env := queue.Message[queue.ProcessRequestedPayload]{
		Header:  queue.NewEventHeader(queue.TopicProcessRequested, queue.WithProducer("imagevault")),
		Payload: payload,
	}

	data, err := queue.Encode(env)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := queue.Decode[queue.ProcessRequestedPayload](data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.Header.Topic != queue.TopicProcessRequested {
		t.Errorf("Header.Topic = %q, want %q", got.Header.Topic, queue.TopicProcessRequested)
	}

	if got.Header.Producer != "imagevault" {
		t.Errorf("Header.Producer = %q, want imagevault", got.Header.Producer)
	}

	if got.Payload.AssetID != payload.AssetID || got.Payload.Attempt != payload.Attempt {
		t.Errorf("Payload = %+v, want %+v", got.Payload, payload)
	}
}

// TestNewWatermillMessage 测试 watermill 消息构造与元数据填充.
func TestNewWatermillMessage(t *testing.T) {
	msg, err := queue.NewWatermillMessage(
		queue.TopicProcessRequested,
		queue.ProcessRequestedPayload{AssetID: "01JXYZ"},
		queue.WithTraceID("trace-1"),
	)
	if err != nil {
		t.Fatalf("NewWatermillMessage failed: %v", err)
	}

	if msg.UUID == "" {
		t.Error("message UUID is empty")
	}

	if got := msg.Metadata.Get("topic"); got != queue.TopicProcessRequested {
		t.Errorf("metadata topic = %q, want %q", got, queue.TopicProcessRequested)
	}

	if got := msg.Metadata.Get("trace_id"); got != "trace-1" {
		t.Errorf("metadata trace_id = %q, want trace-1", got)
	}

	env, err := queue.ParseProcessRequested(msg)
	if err != nil {
		t.Fatalf("ParseProcessRequested failed: %v", err)
	}

	if env.Payload.AssetID != "01JXYZ" {
		t.Errorf("Payload.AssetID = %q, want 01JXYZ", env.Payload.AssetID)
	}
}

// TestTopicGroups 测试主题分组完整且无重复.
func TestTopicGroups(t *testing.T) {
	seen := map[string]bool{}

	for _, topic := range append(append([]string{}, queue.AssetTopics...), queue.ProcessTopics...) {
		if seen[topic] {
			t.Errorf("duplicate topic %q across groups", topic)
		}

		seen[topic] = true

		if len(topic) < 4 || topic[:3] != "iv." {
			t.Errorf("topic %q missing iv. prefix", topic)
		}
	}

	if len(queue.AssetTopics) != 3 || len(queue.ProcessTopics) != 3 {
		t.Errorf("unexpected group sizes: asset=%d process=%d",
			len(queue.AssetTopics), len(queue.ProcessTopics))
	}
}

// TestDeterministicID 测试确定性消息 ID：同输入同输出，不同输入不同输出.
func TestDeterministicID(t *testing.T) {
	a := queue.DeterministicID(queue.TopicProcessRequested, "asset-1")
	b := queue.DeterministicID(queue.TopicProcessRequested, "asset-1")
	c := queue.DeterministicID(queue.TopicProcessRequested, "asset-2")

	if a == "" {
		t.Fatal("DeterministicID returned empty string")
	}

	if a != b {
		t.Errorf("same input produced different IDs: %q vs %q", a, b)
	}

	if a == c {
		t.Errorf("different inputs produced same ID: %q", a)
	}
}
