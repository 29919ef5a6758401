// pwm-sweep exercises the PWM service end to end against the in-memory
// transport: a slow ramp up and down on one channel, with the programmed
// register values echoed to the console. Useful as a smoke test on
// machines without hardware attached.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pwmcode-go/bus"
	"pwmcode-go/drivers/pca9685"
	"pwmcode-go/services/pwm"
	"pwmcode-go/types"
	"pwmcode-go/x/ramp"
)

const (
	sweepChannel = 0
	sweepSteps   = 20
	sweepDur     = 4 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mem := pca9685.NewMemBus()
	dev := pca9685.New(mem, 0)

	b := bus.NewBus(32)
	go pwm.Run(ctx, b.NewConnection("pwm"), dev, pwm.Options{
		BusName:   "mem",
		FreqHz:    50,
		TotemPole: true,
	})

	conn := b.NewConnection("pwm-sweep")
	stateSub := conn.Subscribe(bus.Topic{"pwm", "state"})
	select {
	case msg := <-stateSub.Channel():
		st := msg.Payload.(types.ControllerState)
		fmt.Printf("service %s (%s), prescale=%d\n", st.Level, st.Status, st.Prescale)
	case <-ctx.Done():
		return
	}
	conn.Unsubscribe(stateSub)

	tick := func(d time.Duration) bool {
		select {
		case <-time.After(d):
			return true
		case <-ctx.Done():
			return false
		}
	}
	topic := bus.Topic{"pwm", "channel", sweepChannel, "control", "set"}
	set := func(level uint16) {
		reqCtx, reqCancel := context.WithTimeout(ctx, time.Second)
		defer reqCancel()
		_, err := conn.RequestWait(reqCtx, conn.NewMessage(topic, types.PWMSet{On: 0, Off: level}, false))
		if err != nil {
			return
		}
		base := uint8(0x06 + 4*sweepChannel)
		fmt.Printf("level=%4d regs=[% x]\n", level,
			[]byte{mem.Reg(base), mem.Reg(base + 1), mem.Reg(base + 2), mem.Reg(base + 3)})
	}

	level := uint16(0)
	for ctx.Err() == nil {
		ramp.Linear(level, pca9685.MaxTick, pca9685.MaxTick, sweepDur, sweepSteps, tick, set)
		level = pca9685.MaxTick
		ramp.Linear(level, 0, pca9685.MaxTick, sweepDur, sweepSteps, tick, set)
		level = 0
	}
	fmt.Println("sweep stopped")
}
