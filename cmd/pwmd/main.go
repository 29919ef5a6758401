//go:build linux

// pwmd runs the PWM controller service on a real or in-memory transport,
// configured from a YAML file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcp "github.com/ardnew/mcp2221a"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"pwmcode-go/bus"
	"pwmcode-go/drivers/pca9685"
	"pwmcode-go/services/heartbeat"
	"pwmcode-go/services/pwm"
	"pwmcode-go/services/pwm/config"
	"pwmcode-go/types"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./pwmd.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transport, closeTransport, err := openTransport(cfg.Transport)
	if err != nil {
		log.Fatalf("transport %s init failed: %v", cfg.Transport.Kind, err)
	}
	defer closeTransport()

	dev := pca9685.New(transport, cfg.Transport.Addr)
	dev.SetRetries(cfg.Transport.Retries)
	delay := cfg.Transport.Delay
	dev.SetRetryDelay(func() { time.Sleep(delay) })

	if cfg.PWM.OEChip != "" {
		oe, err := pca9685.RequestOELine(cfg.PWM.OEChip, cfg.PWM.OELine)
		if err != nil {
			log.Fatalf("oe line init failed: %v", err)
		}
		defer oe.Close()
		dev.SetOutputEnablePin(oe.Set)
	}

	b := bus.NewBus(32)

	var hb heartbeat.Service
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	go pwm.Run(ctx, b.NewConnection("pwm"), dev, pwm.Options{
		BusName:   cfg.Transport.Kind + ":" + cfg.Transport.Bus,
		FreqHz:    cfg.PWM.FreqHz,
		Invert:    cfg.PWM.Invert,
		TotemPole: *cfg.PWM.TotemPole,
	})

	conn := b.NewConnection("pwmd")
	if !waitReady(ctx, conn) {
		log.Fatalf("pwm service did not come up")
	}
	log.Printf("pwmd ready: transport=%s addr=%#x freq=%vHz",
		cfg.Transport.Kind, cfg.Transport.Addr, cfg.PWM.FreqHz)

	for _, ch := range cfg.Channels {
		reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
		rep, err := conn.RequestWait(reqCtx, conn.NewMessage(
			bus.Topic{"pwm", "channel", int(ch.Channel), "control", "duty"},
			types.PWMDutySet{Duty: ch.Duty}, false))
		reqCancel()
		if err != nil {
			log.Fatalf("channel %d initial duty: %v", ch.Channel, err)
		}
		if m, ok := rep.Payload.(map[string]any); ok && m["ok"] != true {
			log.Fatalf("channel %d initial duty rejected: %v", ch.Channel, m["error"])
		}
	}

	dev.SetOutputEnable(true)

	<-ctx.Done()
	dev.SetOutputEnable(false)
	log.Printf("pwmd stopping")
}

func openTransport(tc config.TransportConfig) (pca9685.Bus, func(), error) {
	switch tc.Kind {
	case "periph":
		if _, err := host.Init(); err != nil {
			return nil, nil, err
		}
		b, err := i2creg.Open(tc.Bus)
		if err != nil {
			return nil, nil, err
		}
		return pca9685.NewPeriphBus(b), func() { _ = b.Close() }, nil

	case "mcp2221a":
		m, err := mcp.New(0, mcp.VID, mcp.PID)
		if err != nil {
			return nil, nil, err
		}
		if err := m.I2C.SetConfig(mcp.I2CBaudRate); err != nil {
			m.Close()
			return nil, nil, err
		}
		return pca9685.NewMCP2221Bus(m), func() { _ = m.Close() }, nil

	default:
		return pca9685.NewMemBus(), func() {}, nil
	}
}

func waitReady(ctx context.Context, conn *bus.Connection) bool {
	sub := conn.Subscribe(bus.Topic{"pwm", "state"})
	defer conn.Unsubscribe(sub)
	for {
		select {
		case msg := <-sub.Channel():
			st, ok := msg.Payload.(types.ControllerState)
			if !ok {
				continue
			}
			switch st.Level {
			case "ready":
				return true
			case "error":
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}
