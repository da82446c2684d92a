package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lanlight/internal/infrastructure/mqtt"
	"github.com/nerrad567/lanlight/internal/protocol"
	"github.com/nerrad567/lanlight/internal/readiness"
)

// DefaultQoS is used when Options.QoS is left at zero.
const DefaultQoS byte = 1

// gatewayOnline is the status a gateway publishes once it is listening on
// the light network.
const gatewayOnline = "online"

// Publisher publishes to the broker. It is satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTClient is the broker connection the router needs.
// It is satisfied by *mqtt.Client.
type MQTTClient interface {
	Publisher

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error
}

// MessageHandler receives every decoded inbound report.
type MessageHandler func(targets []protocol.DeviceID, msg protocol.Message)

// Logger defines the logging interface used by the router.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures an MQTTRouter.
type Options struct {
	// QoS for requests and subscriptions. Default: 1.
	QoS byte

	// Source is stamped on outbound envelopes so echoes can be recognised.
	// Default: a random UUID per router.
	Source string

	// Logger is optional.
	Logger Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Stats counts router traffic since creation.
type Stats struct {
	Sent         uint64 `json:"sent"`
	SendFailures uint64 `json:"send_failures"`
	Received     uint64 `json:"received"`
	Echoes       uint64 `json:"echoes"`
	Malformed    uint64 `json:"malformed"`
}

// MQTTRouter implements the coordinator's Router over an MQTT link to the
// LAN gateway.
//
// Thread Safety: all methods are safe for concurrent use. Inbound reports
// are handed to the handler on the MQTT client's delivery goroutine.
type MQTTRouter struct {
	client MQTTClient
	topics mqtt.Topics
	qos    byte
	source string
	logger Logger
	now    func() time.Time

	pan *readiness.Latch

	handler   MessageHandler
	handlerMu sync.RWMutex

	started bool
	mu      sync.Mutex // Protects started

	sent         atomic.Uint64
	sendFailures atomic.Uint64
	received     atomic.Uint64
	echoes       atomic.Uint64
	malformed    atomic.Uint64
}

// New creates a router over client. Call Start to begin receiving reports.
func New(client MQTTClient, opts Options) *MQTTRouter {
	if opts.QoS == 0 {
		opts.QoS = DefaultQoS
	}
	if opts.Source == "" {
		opts.Source = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &MQTTRouter{
		client: client,
		qos:    opts.QoS,
		source: opts.Source,
		logger: opts.Logger,
		now:    opts.Now,
		pan:    readiness.NewLatch(),
	}
}

// SetHandler sets the callback for inbound reports. Reports that arrive
// before a handler is set still count towards PAN readiness.
func (r *MQTTRouter) SetHandler(handler MessageHandler) {
	r.handlerMu.Lock()
	r.handler = handler
	r.handlerMu.Unlock()
}

// Start subscribes to gateway reports and status.
func (r *MQTTRouter) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}

	reports := r.topics.AllReports()
	if err := r.client.Subscribe(reports, r.qos, r.handleReport); err != nil {
		return fmt.Errorf("subscribe to reports: %w", err)
	}
	r.logger.Info("subscribed to reports", "topic", reports)

	status := r.topics.AllGatewayStatus()
	if err := r.client.Subscribe(status, r.qos, r.handleGatewayStatus); err != nil {
		if uerr := r.client.Unsubscribe(reports); uerr != nil {
			r.logger.Warn("unsubscribing reports after failed start", "error", uerr)
		}
		return fmt.Errorf("subscribe to gateway status: %w", err)
	}
	r.logger.Info("subscribed to gateway status", "topic", status)

	r.started = true
	r.logger.Info("router started", "source", r.source)
	return nil
}

// Stop removes the router's subscriptions. Sending still works afterwards.
func (r *MQTTRouter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	r.started = false

	var errs []error
	for _, topic := range []string{r.topics.AllReports(), r.topics.AllGatewayStatus()} {
		if err := r.client.Unsubscribe(topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", topic, err))
		}
	}

	r.logger.Info("router stopped")
	return errors.Join(errs...)
}

// SendMessage publishes msg to the gateway. Broadcasts go to one topic;
// device-addressed messages are published once per target device.
func (r *MQTTRouter) SendMessage(msg protocol.Message) error {
	target := msg.Target()
	if target.IsBroadcast() {
		return r.publish(r.topics.RequestBroadcast(), msg)
	}

	ids := target.Devices()
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrNoTargets, msg.Type())
	}

	var errs []error
	for _, id := range ids {
		single := protocol.NewMessage(msg.Type(), protocol.DeviceTarget(id), msg.Payload())
		if err := r.publish(r.topics.Request(id.String()), single); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// publish encodes msg and hands it to the broker.
func (r *MQTTRouter) publish(topic string, msg protocol.Message) error {
	data, err := protocol.EncodeEnvelope(msg, r.source, r.now())
	if err != nil {
		r.sendFailures.Add(1)
		return fmt.Errorf("encoding %s: %w", msg.Type(), err)
	}

	if err := r.client.Publish(topic, data, r.qos, false); err != nil {
		r.sendFailures.Add(1)
		return fmt.Errorf("publishing %s to %s: %w", msg.Type(), topic, err)
	}

	r.sent.Add(1)
	r.logger.Debug("request sent", "type", msg.Type(), "topic", topic)
	return nil
}

// WaitForInitPAN blocks until the light network has been sighted: the first
// report arrived or a gateway announced itself online.
func (r *MQTTRouter) WaitForInitPAN(ctx context.Context, timeout time.Duration) (bool, error) {
	return r.pan.Wait(ctx, timeout)
}

// PANSighted reports whether the light network has been sighted.
func (r *MQTTRouter) PANSighted() bool {
	return r.pan.Fired()
}

// Source returns the ID stamped on this router's outbound envelopes.
func (r *MQTTRouter) Source() string {
	return r.source
}

// Stats returns a snapshot of the traffic counters.
func (r *MQTTRouter) Stats() Stats {
	return Stats{
		Sent:         r.sent.Load(),
		SendFailures: r.sendFailures.Load(),
		Received:     r.received.Load(),
		Echoes:       r.echoes.Load(),
		Malformed:    r.malformed.Load(),
	}
}

// handleReport decodes one relayed report and dispatches it.
// A report without targets is attributed to the device in its topic.
func (r *MQTTRouter) handleReport(topic string, payload []byte) error {
	msg, env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		r.malformed.Add(1)
		return fmt.Errorf("%w on %s: %w", ErrMalformedReport, topic, err)
	}

	targets := env.Targets
	if len(targets) == 0 {
		id, err := protocol.ParseDeviceID(lastSegment(topic))
		if err != nil {
			r.malformed.Add(1)
			return fmt.Errorf("%w on %s: no target device", ErrMalformedReport, topic)
		}
		targets = []protocol.DeviceID{id}
		msg = protocol.NewMessage(msg.Type(), protocol.DeviceTarget(id), msg.Payload())
	}

	r.received.Add(1)
	if env.Source == r.source {
		r.echoes.Add(1)
	}
	r.markPAN("report")

	r.handlerMu.RLock()
	handler := r.handler
	r.handlerMu.RUnlock()

	if handler != nil {
		handler(targets, msg)
	}
	return nil
}

// gatewayStatus is the body of lanlight/gateway/{id}/status.
type gatewayStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// handleGatewayStatus tracks gateway availability.
func (r *MQTTRouter) handleGatewayStatus(topic string, payload []byte) error {
	// An empty retained payload clears a stale status.
	if len(payload) == 0 {
		return nil
	}

	var st gatewayStatus
	if err := json.Unmarshal(payload, &st); err != nil {
		r.malformed.Add(1)
		return fmt.Errorf("%w on %s: %w", ErrMalformedReport, topic, err)
	}

	gateway := gatewayID(topic)
	if st.Status == gatewayOnline {
		r.logger.Info("gateway online", "gateway", gateway)
		r.markPAN("gateway")
		return nil
	}

	r.logger.Warn("gateway not online", "gateway", gateway, "status", st.Status, "reason", st.Reason)
	return nil
}

// markPAN fires the PAN latch once.
func (r *MQTTRouter) markPAN(via string) {
	if r.pan.Fire() {
		r.logger.Info("light network sighted", "via", via)
	}
}

// lastSegment returns the final element of an MQTT topic.
func lastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// gatewayID extracts {id} from lanlight/gateway/{id}/status.
func gatewayID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 4 {
		return parts[2]
	}
	return topic
}
