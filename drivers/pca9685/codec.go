package pca9685

import (
	"math"

	"pwmcode-go/x/mathx"
)

// prescaleForFreq maps a target output frequency to the PRE_SCALE register
// value: round(osc / (4096 * freq)) - 1, clamped to [3, 255]. Rounding is
// half-away-from-zero. Datasheet pairs: 50 Hz -> 121, 1000 Hz -> 5.
func prescaleForFreq(freqHz float32) uint8 {
	p := math.Round(float64(OscFreqHz)/(4096*float64(freqHz))) - 1
	return uint8(mathx.Clamp(p, PrescaleMin, PrescaleMax))
}

// encodePWM packs a 12-bit on/off tick pair into the 4-byte LEDn register
// block: ON low, ON high nibble, OFF low, OFF high nibble. The top nibble of
// each high byte is reserved for the full-on/full-off flag and stays zero.
func encodePWM(on, off uint16) [4]byte {
	return [4]byte{
		byte(on),
		byte(on>>8) & 0x0F,
		byte(off),
		byte(off>>8) & 0x0F,
	}
}

// decodePWM is the inverse of encodePWM, ignoring the full-on/full-off bits.
func decodePWM(b [4]byte) (on, off uint16) {
	on = uint16(b[0]) | uint16(b[1]&0x0F)<<8
	off = uint16(b[2]) | uint16(b[3]&0x0F)<<8
	return on, off
}

// encodeFullOn returns the block that forces a channel permanently high:
// bit 4 of LEDn_ON_H set, OFF block zeroed.
func encodeFullOn() [4]byte {
	return [4]byte{0, pwmFullBit, 0, 0}
}

// encodeFullOff returns the block that forces a channel permanently low:
// bit 4 of LEDn_OFF_H set, ON block zeroed.
func encodeFullOff() [4]byte {
	return [4]byte{0, 0, 0, pwmFullBit}
}

// offTickForDuty converts a duty cycle to the OFF tick for an ON tick of 0.
// Values outside [0, 1] are clamped, never rejected.
func offTickForDuty(duty float32) uint16 {
	d := mathx.Clamp(duty, 0, 1)
	return uint16(math.Round(float64(d) * MaxTick))
}
