// services/pwm/service.go
package pwm

import (
	"context"
	"encoding/json"
	"time"

	"pwmcode-go/bus"
	"pwmcode-go/drivers/pca9685"
	"pwmcode-go/errcode"
	"pwmcode-go/types"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Options carries the startup configuration applied before the loop runs.
type Options struct {
	BusName   string
	FreqHz    float32
	Invert    bool
	TotemPole bool
}

func Run(ctx context.Context, conn *bus.Connection, dev *pca9685.Device, opts Options) {
	s := &service{
		conn: conn,
		dev:  dev,
		opts: opts,
	}
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	dev  *pca9685.Device
	opts Options

	freqHz float32
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	ctrlSub := s.conn.Subscribe(bus.Topic{"pwm", "control", "+"})
	chanSub := s.conn.Subscribe(bus.Topic{"pwm", "channel", "+", "control", "+"})
	defer s.conn.Unsubscribe(ctrlSub)
	defer s.conn.Unsubscribe(chanSub)

	if !s.bringUp() {
		s.publishState("error", "init_failed")
		return
	}
	s.pubRet(bus.Topic{"pwm", "info"}, types.ControllerInfo{
		Bus:      s.opts.BusName,
		Addr:     s.dev.Address(),
		Channels: pca9685.MaxChannels,
		MaxTick:  pca9685.MaxTick,
	})
	s.publishState("ready", "configured")

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled")
			return

		case msg := <-ctrlSub.Channel():
			// pwm/control/<method>
			if len(msg.Topic) < 3 {
				continue
			}
			method, _ := msg.Topic[2].(string)
			s.handleControl(msg, method)

		case msg := <-chanSub.Channel():
			// pwm/channel/<n:int>/control/<method>
			if len(msg.Topic) < 5 {
				continue
			}
			ch, ok := asInt(msg.Topic[2])
			if !ok || ch < 0 || ch >= pca9685.MaxChannels {
				s.replyErr(msg, errcode.UnknownChannel)
				continue
			}
			method, _ := msg.Topic[4].(string)
			s.handleChannel(msg, uint8(ch), method)
		}
	}
}

func (s *service) bringUp() bool {
	if !s.dev.Reset() {
		return false
	}
	if s.opts.FreqHz > 0 {
		if !s.dev.SetPwmFreq(s.opts.FreqHz) {
			return false
		}
		s.freqHz = s.opts.FreqHz
	}
	if s.opts.Invert {
		if !s.dev.SetOutputInvert(true) {
			return false
		}
	}
	if !s.dev.SetOutputDriverMode(s.opts.TotemPole) {
		return false
	}
	return true
}

// -----------------------------------------------------------------------------
// Controller methods
// -----------------------------------------------------------------------------

func (s *service) handleControl(msg *bus.Message, method string) {
	switch method {
	case "set_freq":
		var p types.PWMFreqSet
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.dev.SetPwmFreq(p.FreqHz) {
			s.replyDevErr(msg)
			return
		}
		s.freqHz = p.FreqHz
		ps, _ := s.dev.GetPrescale()
		s.publishState(s.levelNow(), "freq_set")
		s.replyOK(msg, map[string]any{"freq_hz": p.FreqHz, "prescale": ps})

	case "sleep":
		if !s.dev.Sleep() {
			s.replyDevErr(msg)
			return
		}
		s.publishState("sleeping", "oscillator_off")
		s.replyOK(msg, nil)

	case "wake":
		if !s.dev.Wake() {
			s.replyDevErr(msg)
			return
		}
		s.publishState("ready", "oscillator_on")
		s.replyOK(msg, nil)

	case "reset":
		if !s.dev.Reset() {
			s.replyDevErr(msg)
			return
		}
		s.freqHz = 0
		s.publishState("ready", "reset")
		s.replyOK(msg, nil)

	case "all_set":
		var p types.PWMSet
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.dev.SetAllPwm(p.On, p.Off) {
			s.replyDevErr(msg)
			return
		}
		for ch := 0; ch < pca9685.MaxChannels; ch++ {
			s.pubChanValue(uint8(ch), p.On, p.Off)
		}
		s.replyOK(msg, nil)

	case "invert":
		var p types.PWMInvertSet
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.dev.SetOutputInvert(p.Invert) {
			s.replyDevErr(msg)
			return
		}
		s.replyOK(msg, nil)

	case "driver_mode":
		var p types.PWMDriverModeSet
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.dev.SetOutputDriverMode(p.TotemPole) {
			s.replyDevErr(msg)
			return
		}
		s.replyOK(msg, nil)

	default:
		s.replyErr(msg, errcode.Unsupported)
	}
}

// -----------------------------------------------------------------------------
// Channel methods
// -----------------------------------------------------------------------------

func (s *service) handleChannel(msg *bus.Message, ch uint8, method string) {
	switch method {
	case "set":
		var p types.PWMSet
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.dev.SetPwm(ch, p.On, p.Off) {
			s.replyDevErr(msg)
			return
		}
		s.pubChanValue(ch, p.On, p.Off)
		s.replyOK(msg, nil)

	case "duty":
		var p types.PWMDutySet
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if !s.dev.SetDuty(ch, p.Duty) {
			s.replyDevErr(msg)
			return
		}
		on, off, _ := s.dev.GetPwm(ch)
		s.pubChanValue(ch, on, off)
		s.replyOK(msg, map[string]any{"on": on, "off": off})

	case "full_on":
		if !s.dev.SetChannelFullOn(ch) {
			s.replyDevErr(msg)
			return
		}
		s.pubChanValue(ch, 0, 0)
		s.replyOK(msg, nil)

	case "full_off":
		if !s.dev.SetChannelFullOff(ch) {
			s.replyDevErr(msg)
			return
		}
		s.pubChanValue(ch, 0, 0)
		s.replyOK(msg, nil)

	case "get":
		on, off, ok := s.dev.GetPwm(ch)
		if !ok {
			s.replyDevErr(msg)
			return
		}
		s.replyOK(msg, map[string]any{"on": on, "off": off})

	default:
		s.replyErr(msg, errcode.Unsupported)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *service) levelNow() string {
	if s.dev.IsSleeping() {
		return "sleeping"
	}
	return "ready"
}

func (s *service) publishState(level, status string) {
	st := types.ControllerState{
		Level:  level,
		Status: status,
		FreqHz: s.freqHz,
		TSMs:   time.Now().UnixMilli(),
	}
	if ps, ok := s.dev.GetPrescale(); ok {
		st.Prescale = ps
	}
	s.pubRet(bus.Topic{"pwm", "state"}, st)
}

func (s *service) pubChanValue(ch uint8, on, off uint16) {
	s.pubRet(bus.Topic{"pwm", "channel", int(ch), "value"},
		types.PWMChannelValue{On: on, Off: off})
}

func (s *service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func (s *service) replyOK(req *bus.Message, extra map[string]any) {
	if len(req.ReplyTo) == 0 {
		return
	}
	m := map[string]any{"ok": true}
	for k, v := range extra {
		m[k] = v
	}
	s.conn.Reply(req, m, false)
}

func (s *service) replyErr(req *bus.Message, c errcode.Code) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, map[string]any{"ok": false, "error": string(c)}, false)
}

// replyDevErr reports the driver's most recent fault and clears it so the
// next request starts clean.
func (s *service) replyDevErr(req *bus.Message) {
	c := codeFor(s.dev.LastError())
	s.dev.ClearErrorFlags()
	s.replyErr(req, c)
}

func codeFor(e pca9685.Error) errcode.Code {
	switch e {
	case pca9685.ErrI2CWrite:
		return errcode.I2CWrite
	case pca9685.ErrI2CRead:
		return errcode.I2CRead
	case pca9685.ErrInvalidParam:
		return errcode.InvalidParams
	case pca9685.ErrDeviceNotFound:
		return errcode.DeviceNotFound
	case pca9685.ErrNotInitialized:
		return errcode.NotInitialized
	case pca9685.ErrOutOfRange:
		return errcode.OutOfRange
	default:
		return errcode.Error
	}
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
