package coordinator

import (
	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/protocol"
)

// pollRequests are the per-light state requests broadcast in each round.
var pollRequests = []protocol.MessageType{
	protocol.GetLabel,
	protocol.GetPower,
	protocol.GetTime,
}

// pollTask broadcasts one poll burst.
type pollTask struct {
	router  Router
	lights  *device.Lights
	sched   device.Scheduler
	repeats int
	logger  Logger
}

// run sends repeats rounds of state requests, then one tag-label request
// covering every tag. A failed send is logged and the burst continues.
func (t *pollTask) run() {
	broadcast := protocol.BroadcastTarget()
	failed := 0

	for i := 0; i < t.repeats; i++ {
		for _, typ := range pollRequests {
			if err := t.router.SendMessage(protocol.NewMessage(typ, broadcast, nil)); err != nil {
				failed++
				t.logger.Warn("poll request failed", "type", typ, "round", i+1, "error", err)
			}
		}
	}

	labels := protocol.NewMessage(protocol.GetTagLabels, broadcast,
		protocol.GetTagLabelsPayload{Tags: protocol.Pack(protocol.AllTags())})
	if err := t.router.SendMessage(labels); err != nil {
		failed++
		t.logger.Warn("tag label request failed", "error", err)
	}

	t.logger.Debug("poll burst sent", "rounds", t.repeats, "failed", failed)
	t.lights.PollSent(t.sched)
}

// refreshTask evicts lights that stopped answering.
type refreshTask struct {
	lights *device.Lights
}

func (t *refreshTask) run() {
	t.lights.RemoveLostLights()
}
