package realtime

import (
	"time"

	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/observability/metrics"
)

// Dispatcher fans committed events out to room members. Delivery is
// at-least-once per recipient at best effort: a failed delivery is counted
// and logged, never retried, and never propagated to the caller.
type Dispatcher struct {
	registry *Registry
	log      *logger.Logger
}

func NewDispatcher(registry *Registry, log *logger.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

// Publish marshals the event once and enqueues it to every session joined to
// the room. A session whose buffer stays full past its send timeout is
// disconnected: a consumer that slow would only fall further behind, and it
// can reconnect and reload state over the gateway.
func (d *Dispatcher) Publish(roomID, eventType string, payload any) {
	start := time.Now()

	data, err := marshalFrame(FrameType(eventType), payload)
	if err != nil {
		d.log.WithFields(nil, logger.Fields{
			"room_id": roomID,
			"type":    eventType,
			"action":  "broadcast_marshal_failed",
		}).Errorf("broadcast marshal failed: %v", err)
		return
	}

	members := d.registry.MembersOf(roomID)
	metrics.BroadcastsTotal.Inc()
	if len(members) == 0 {
		return
	}

	delivered := 0
	for _, session := range members {
		if err := session.enqueue(data); err != nil {
			metrics.DeliveryFailuresTotal.WithLabelValues("slow_consumer").Inc()
			d.log.WithFields(session.ctx, logger.Fields{
				"room_id":    roomID,
				"session_id": session.id,
				"user_id":    session.claims.UserID,
				"type":       eventType,
				"action":     "broadcast_delivery_failed",
			}).Warnf("broadcast delivery failed, disconnecting session: %v", err)
			session.Disconnect()
			continue
		}
		delivered++
	}

	d.log.WithFields(nil, logger.Fields{
		"room_id":     roomID,
		"type":        eventType,
		"recipients":  len(members),
		"delivered":   delivered,
		"duration_ms": time.Since(start).Milliseconds(),
		"action":      "broadcast",
	}).Debug("broadcast dispatched")
}
