// Package heartbeat publishes a retained liveness beacon so bus clients
// can tell a stalled daemon from an idle one.
package heartbeat

import (
	"context"
	"time"

	"pwmcode-go/bus"
)

var (
	topicHeartbeat       = bus.Topic{"heartbeat"}
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
)

const defaultInterval = time.Second

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	start := time.Now()
	seq := uint64(0)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	beat := func() {
		seq++
		conn.Publish(conn.NewMessage(topicHeartbeat, map[string]any{
			"seq":      seq,
			"uptime_s": int64(time.Since(start).Seconds()),
			"ts_ms":    time.Now().UnixMilli(),
		}, true))
	}
	beat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			beat()
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_ms"].(float64); ok && iv >= 100 {
					tick.Reset(time.Duration(iv) * time.Millisecond)
				}
			}
		}
	}
}

// Start launches the beacon.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
