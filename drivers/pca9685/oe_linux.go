//go:build linux

package pca9685

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// OELine drives the PCA9685's active-low /OE pin through the Linux GPIO
// character device. Pass Set to Device.SetOutputEnablePin.
type OELine struct {
	line *gpiocdev.Line
}

// RequestOELine claims the GPIO line at offset on the named chip (for
// example "gpiochip0") as an output. The line starts high, so outputs are
// disabled until Set(true).
func RequestOELine(chip string, offset int) (*OELine, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("pca9685-oe"))
	if err != nil {
		return nil, fmt.Errorf("pca9685: request /OE line %s:%d: %w", chip, offset, err)
	}
	return &OELine{line: line}, nil
}

// Set enables (drives low) or disables (drives high) the chip's outputs.
func (l *OELine) Set(enabled bool) error {
	v := 1
	if enabled {
		v = 0
	}
	return l.line.SetValue(v)
}

// Close disables outputs and releases the line.
func (l *OELine) Close() error {
	if l.line == nil {
		return nil
	}
	_ = l.line.SetValue(1)
	err := l.line.Close()
	l.line = nil
	return err
}
