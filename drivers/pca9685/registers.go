package pca9685

// Register addresses and bitfields, from the NXP PCA9685 datasheet (rev 4).

const (
	// 7-bit I2C address with all address pins low.
	AddressDefault = 0x40

	// Hardware limits.
	MaxChannels = 16       // PWM channels 0..15
	MaxTick     = 4095     // 12-bit on/off counter
	OscFreqHz   = 25000000 // internal oscillator

	// Output frequency range the prescaler can express.
	FreqMinHz = 24
	FreqMaxHz = 1526

	// PRE_SCALE register bounds.
	PrescaleMin = 3
	PrescaleMax = 255

	// --- Register sub-addresses ---

	regMode1      = 0x00 // R/W: restart, extclk, auto-increment, sleep, sub/allcall
	regMode2      = 0x01 // R/W: invert, output change, output driver
	regSubAdr1    = 0x02 // R/W
	regSubAdr2    = 0x03 // R/W
	regSubAdr3    = 0x04 // R/W
	regAllCallAdr = 0x05 // R/W

	// Per-channel blocks: LEDn_ON_L/H, LEDn_OFF_L/H at 0x06 + 4n, n=0..15.
	regLED0OnL = 0x06

	// Broadcast block for all channels at once.
	regAllLEDOnL = 0xFA

	regPreScale = 0xFE // R/W while SLEEP=1 only
	regTestMode = 0xFF

	// --- MODE1 bits ---
	mode1Restart = 0x80
	mode1ExtClk  = 0x40
	mode1AutoInc = 0x20
	mode1Sleep   = 0x10

	// --- MODE2 bits ---
	mode2Invert = 0x10
	mode2OutDrv = 0x04 // 1 = totem-pole, 0 = open-drain

	// Bit 4 of LEDn_ON_H / LEDn_OFF_H forces the channel full-on / full-off.
	pwmFullBit = 0x10
)

// channelReg returns the LEDn_ON_L register address for a channel.
func channelReg(channel uint8) uint8 {
	return regLED0OnL + 4*channel
}
