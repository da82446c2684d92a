package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lanlight/internal/infrastructure/mqtt"
	"github.com/nerrad567/lanlight/internal/protocol"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockClient records publishes and subscriptions.
type mockClient struct {
	mu         sync.Mutex
	published  []published
	handlers   map[string]mqtt.MessageHandler
	publishErr error
	subErr     map[string]error
	unsubbed   []string
}

func newMockClient() *mockClient {
	return &mockClient{
		handlers: make(map[string]mqtt.MessageHandler),
		subErr:   make(map[string]error),
	}
}

func (m *mockClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, published{topic, payload, qos, retained})
	return nil
}

func (m *mockClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.subErr[topic]; err != nil {
		return err
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubbed = append(m.unsubbed, topic)
	return nil
}

// deliver simulates the broker routing payload to the handler for pattern.
func (m *mockClient) deliver(t *testing.T, pattern, topic string, payload []byte) error {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", pattern)
	}
	return handler(topic, payload)
}

func (m *mockClient) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]published, len(m.published))
	copy(out, m.published)
	return out
}

const (
	deviceA = protocol.DeviceID("d073d5000001")
	deviceB = protocol.DeviceID("d073d5000002")
)

var fixedNow = time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)

func newTestRouter(client *mockClient) *MQTTRouter {
	return New(client, Options{
		Source: "test-session",
		Now:    func() time.Time { return fixedNow },
	})
}

func report(t *testing.T, msg protocol.Message, source string) []byte {
	t.Helper()
	data, err := protocol.EncodeEnvelope(msg, source, fixedNow)
	if err != nil {
		t.Fatalf("EncodeEnvelope() error = %v", err)
	}
	return data
}

func TestNew_Defaults(t *testing.T) {
	r := New(newMockClient(), Options{})

	if r.qos != DefaultQoS {
		t.Errorf("qos = %d, want %d", r.qos, DefaultQoS)
	}
	if r.Source() == "" {
		t.Error("Source() is empty, want generated ID")
	}
	if other := New(newMockClient(), Options{}); other.Source() == r.Source() {
		t.Error("two routers share a source ID")
	}
	if r.PANSighted() {
		t.Error("PANSighted() = true before any traffic")
	}
}

func TestStartStop(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	if err := r.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop() before Start error = %v, want ErrNotStarted", err)
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for _, topic := range []string{"lanlight/report/#", "lanlight/gateway/+/status"} {
		if _, ok := client.handlers[topic]; !ok {
			t.Errorf("not subscribed to %s", topic)
		}
	}

	if err := r.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(client.handlers) != 0 {
		t.Errorf("subscriptions left after Stop: %v", client.handlers)
	}
}

func TestStart_StatusSubscribeFails(t *testing.T) {
	client := newMockClient()
	client.subErr["lanlight/gateway/+/status"] = errors.New("denied")
	r := newTestRouter(client)

	if err := r.Start(); err == nil {
		t.Fatal("Start() error = nil, want error")
	}
	if _, ok := client.handlers["lanlight/report/#"]; ok {
		t.Error("report subscription kept after failed start")
	}
}

func TestSendMessage_Broadcast(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	msg := protocol.NewMessage(protocol.GetTagLabels, protocol.BroadcastTarget(),
		protocol.GetTagLabelsPayload{Tags: ^uint64(0)})
	if err := r.SendMessage(msg); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	sent := client.messages()
	if len(sent) != 1 {
		t.Fatalf("published %d messages, want 1", len(sent))
	}
	if sent[0].topic != "lanlight/request/broadcast" {
		t.Errorf("topic = %q, want lanlight/request/broadcast", sent[0].topic)
	}
	if sent[0].retained {
		t.Error("request published retained")
	}

	got, env, err := protocol.DecodeEnvelope(sent[0].payload)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	if env.Source != "test-session" || !env.At.Equal(fixedNow) {
		t.Errorf("envelope source/at = %q/%v", env.Source, env.At)
	}
	if got.Type() != protocol.GetTagLabels || !got.Target().IsBroadcast() {
		t.Errorf("decoded %v, want broadcast get_tag_labels", got)
	}
	if p := got.Payload().(protocol.GetTagLabelsPayload); p.Tags != ^uint64(0) {
		t.Errorf("tags = %x, want all", p.Tags)
	}
}

func TestSendMessage_PerDevice(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	msg := protocol.NewMessage(protocol.GetTags, protocol.DeviceTarget(deviceA, deviceB), nil)
	if err := r.SendMessage(msg); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	sent := client.messages()
	if len(sent) != 2 {
		t.Fatalf("published %d messages, want 2", len(sent))
	}
	for i, id := range []protocol.DeviceID{deviceA, deviceB} {
		if want := "lanlight/request/" + id.String(); sent[i].topic != want {
			t.Errorf("topic[%d] = %q, want %q", i, sent[i].topic, want)
		}
		_, env, err := protocol.DecodeEnvelope(sent[i].payload)
		if err != nil {
			t.Fatalf("DecodeEnvelope() error = %v", err)
		}
		if len(env.Targets) != 1 || env.Targets[0] != id {
			t.Errorf("targets[%d] = %v, want [%s]", i, env.Targets, id)
		}
	}

	if s := r.Stats(); s.Sent != 2 {
		t.Errorf("Stats().Sent = %d, want 2", s.Sent)
	}
}

func TestSendMessage_Errors(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	empty := protocol.NewMessage(protocol.GetTags, protocol.DeviceTarget(), nil)
	if err := r.SendMessage(empty); !errors.Is(err, ErrNoTargets) {
		t.Errorf("SendMessage(no targets) error = %v, want ErrNoTargets", err)
	}

	client.publishErr = mqtt.ErrNotConnected
	msg := protocol.NewMessage(protocol.GetLabel, protocol.BroadcastTarget(), nil)
	if err := r.SendMessage(msg); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("SendMessage() error = %v, want ErrNotConnected", err)
	}
	if s := r.Stats(); s.SendFailures != 1 {
		t.Errorf("Stats().SendFailures = %d, want 1", s.SendFailures)
	}
}

func TestInboundReport(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	var gotTargets []protocol.DeviceID
	var gotMsg protocol.Message
	r.SetHandler(func(targets []protocol.DeviceID, msg protocol.Message) {
		gotTargets = targets
		gotMsg = msg
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msg := protocol.NewMessage(protocol.StateLabel, protocol.DeviceTarget(deviceA),
		protocol.StateLabelPayload{Label: "Desk"})
	if err := client.deliver(t, "lanlight/report/#", "lanlight/report/"+deviceA.String(), report(t, msg, "gateway")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(gotTargets) != 1 || gotTargets[0] != deviceA {
		t.Errorf("targets = %v, want [%s]", gotTargets, deviceA)
	}
	if p, ok := gotMsg.Payload().(protocol.StateLabelPayload); !ok || p.Label != "Desk" {
		t.Errorf("payload = %#v, want label Desk", gotMsg.Payload())
	}
	if !r.PANSighted() {
		t.Error("PANSighted() = false after first report")
	}
}

func TestInboundReport_TargetFromTopic(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	var gotTargets []protocol.DeviceID
	r.SetHandler(func(targets []protocol.DeviceID, _ protocol.Message) { gotTargets = targets })
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"type":"state_power","payload":{"level":65535},"at":"2026-01-18T12:00:00Z"}`)
	if err := client.deliver(t, "lanlight/report/#", "lanlight/report/D0:73:D5:00:00:02", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(gotTargets) != 1 || gotTargets[0] != deviceB {
		t.Errorf("targets = %v, want [%s]", gotTargets, deviceB)
	}
}

func TestInboundReport_Echo(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)

	calls := 0
	r.SetHandler(func([]protocol.DeviceID, protocol.Message) { calls++ })
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msg := protocol.NewMessage(protocol.GetPower, protocol.DeviceTarget(deviceA), nil)
	if err := client.deliver(t, "lanlight/report/#", "lanlight/report/"+deviceA.String(), report(t, msg, "test-session")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (echoes still count as sightings)", calls)
	}
	if s := r.Stats(); s.Echoes != 1 || s.Received != 1 {
		t.Errorf("Stats() = %+v, want 1 echo of 1 received", s)
	}
}

func TestInboundReport_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"not json", "lanlight/report/d073d5000001", `{{`},
		{"unknown type", "lanlight/report/d073d5000001", `{"type":"set_colour","at":"2026-01-18T12:00:00Z"}`},
		{"bad target", "lanlight/report/d073d5000001", `{"type":"get_label","targets":["nope"],"at":"2026-01-18T12:00:00Z"}`},
		{"missing payload", "lanlight/report/d073d5000001", `{"type":"state_label","at":"2026-01-18T12:00:00Z"}`},
		{"no device anywhere", "lanlight/report/unknown", `{"type":"get_label","at":"2026-01-18T12:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient()
			r := newTestRouter(client)

			called := false
			r.SetHandler(func([]protocol.DeviceID, protocol.Message) { called = true })
			if err := r.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			err := client.deliver(t, "lanlight/report/#", tt.topic, []byte(tt.payload))
			if !errors.Is(err, ErrMalformedReport) {
				t.Errorf("handler error = %v, want ErrMalformedReport", err)
			}
			if called {
				t.Error("malformed report dispatched")
			}
			if r.PANSighted() {
				t.Error("malformed report fired PAN readiness")
			}
			if s := r.Stats(); s.Malformed != 1 {
				t.Errorf("Stats().Malformed = %d, want 1", s.Malformed)
			}
		})
	}
}

func TestGatewayStatus(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantPAN  bool
		wantFail bool
	}{
		{"online", `{"status":"online"}`, true, false},
		{"offline", `{"status":"offline","reason":"shutdown"}`, false, false},
		{"cleared", ``, false, false},
		{"garbage", `online`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient()
			r := newTestRouter(client)
			if err := r.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			err := client.deliver(t, "lanlight/gateway/+/status", "lanlight/gateway/gw1/status", []byte(tt.payload))
			if (err != nil) != tt.wantFail {
				t.Errorf("handler error = %v, wantFail %v", err, tt.wantFail)
			}
			if r.PANSighted() != tt.wantPAN {
				t.Errorf("PANSighted() = %v, want %v", r.PANSighted(), tt.wantPAN)
			}
		})
	}
}

func TestWaitForInitPAN(t *testing.T) {
	client := newMockClient()
	r := newTestRouter(client)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ok, err := r.WaitForInitPAN(context.Background(), 10*time.Millisecond)
	if ok || err != nil {
		t.Fatalf("WaitForInitPAN() before traffic = (%v, %v), want (false, nil)", ok, err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = client.deliver(t, "lanlight/gateway/+/status", "lanlight/gateway/gw1/status", []byte(`{"status":"online"}`))
	}()

	ok, err = r.WaitForInitPAN(context.Background(), 2*time.Second)
	if !ok || err != nil {
		t.Fatalf("WaitForInitPAN() = (%v, %v), want (true, nil)", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fresh := newTestRouter(newMockClient())
	if ok, err := fresh.WaitForInitPAN(ctx, time.Second); ok || !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForInitPAN(cancelled) = (%v, %v), want (false, context.Canceled)", ok, err)
	}
}

func TestStats_JSON(t *testing.T) {
	data, err := json.Marshal(Stats{Sent: 3, Malformed: 1})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"sent":3,"send_failures":0,"received":0,"echoes":0,"malformed":1}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
