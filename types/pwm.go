package types

// ------------------------
// PWM controller
// ------------------------

type ControllerInfo struct {
	Bus      string `json:"bus"`
	Addr     uint8  `json:"addr"`
	Channels uint8  `json:"channels"`
	MaxTick  uint16 `json:"max_tick"`
}

type ControllerState struct {
	Level    string  `json:"level"` // "ready", "sleeping", "error"
	Status   string  `json:"status"`
	FreqHz   float32 `json:"freq_hz,omitempty"`
	Prescale uint8   `json:"prescale,omitempty"`
	TSMs     int64   `json:"ts_ms"`
}

type PWMFreqSet struct {
	FreqHz float32 `json:"freq_hz"`
}

type PWMInvertSet struct {
	Invert bool `json:"invert"`
}

type PWMDriverModeSet struct {
	TotemPole bool `json:"totem_pole"`
}

// ------------------------
// PWM channel
// ------------------------

type PWMChannelValue struct {
	On  uint16 `json:"on"`  // 0..4095
	Off uint16 `json:"off"` // 0..4095
}

type PWMSet struct {
	On  uint16 `json:"on"`
	Off uint16 `json:"off"`
}

type PWMDutySet struct {
	Duty float32 `json:"duty"` // 0..1, clamped
}
