package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Transport TransportConfig `yaml:"transport"`
	PWM       PWMConfig       `yaml:"pwm"`
	Channels  []ChannelConfig `yaml:"channels"`
}

type TransportConfig struct {
	Kind    string        `yaml:"kind"` // "periph", "mcp2221a" or "mem"
	Bus     string        `yaml:"bus"`  // periph bus name, e.g. "/dev/i2c-1" or "1"
	Addr    uint8         `yaml:"addr"`
	Retries int           `yaml:"retries"`
	Delay   time.Duration `yaml:"retry_delay"`
}

type PWMConfig struct {
	FreqHz    float32 `yaml:"freq_hz"`
	Invert    bool    `yaml:"invert"`
	TotemPole *bool   `yaml:"totem_pole"`
	OEChip    string  `yaml:"oe_chip"`
	OELine    int     `yaml:"oe_line"`
}

type ChannelConfig struct {
	Channel uint8   `yaml:"channel"`
	Duty    float32 `yaml:"duty"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	switch cfg.Transport.Kind {
	case "":
		cfg.Transport.Kind = "mem"
	case "periph", "mcp2221a", "mem":
	default:
		return Config{}, fmt.Errorf("transport.kind %q is not one of periph, mcp2221a, mem", cfg.Transport.Kind)
	}
	if cfg.Transport.Addr == 0 {
		cfg.Transport.Addr = 0x40
	}
	if cfg.Transport.Addr >= 0x80 {
		return Config{}, fmt.Errorf("transport.addr %#x is not a 7-bit address", cfg.Transport.Addr)
	}
	if cfg.Transport.Retries < 0 {
		return Config{}, fmt.Errorf("transport.retries must be >= 0")
	}
	if cfg.Transport.Retries == 0 {
		cfg.Transport.Retries = 3
	}
	if cfg.Transport.Delay <= 0 {
		cfg.Transport.Delay = time.Millisecond
	}

	if cfg.PWM.FreqHz == 0 {
		cfg.PWM.FreqHz = 50
	}
	if cfg.PWM.FreqHz < 24 || cfg.PWM.FreqHz > 1526 {
		return Config{}, fmt.Errorf("pwm.freq_hz %v is outside 24..1526", cfg.PWM.FreqHz)
	}
	if cfg.PWM.TotemPole == nil {
		tp := true
		cfg.PWM.TotemPole = &tp
	}

	for _, ch := range cfg.Channels {
		if ch.Channel >= 16 {
			return Config{}, fmt.Errorf("channels: channel %d is outside 0..15", ch.Channel)
		}
		if ch.Duty < 0 || ch.Duty > 1 {
			return Config{}, fmt.Errorf("channels: duty %v on channel %d is outside 0..1", ch.Duty, ch.Channel)
		}
	}

	return cfg, nil
}
