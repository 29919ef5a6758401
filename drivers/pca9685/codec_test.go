package pca9685

import "testing"

func TestPrescaleForFreq_DatasheetPairs(t *testing.T) {
	cases := []struct {
		freq float32
		want uint8
	}{
		{50, 121},
		{1000, 5},
		{24, 253},
		{200, 30},
		{1526, 3},
	}
	for _, c := range cases {
		if got := prescaleForFreq(c.freq); got != c.want {
			t.Errorf("prescaleForFreq(%v) = %d, want %d", c.freq, got, c.want)
		}
	}
}

func TestPrescaleForFreq_MonotonicAndBounded(t *testing.T) {
	prev := prescaleForFreq(FreqMinHz)
	for f := float32(FreqMinHz); f <= FreqMaxHz; f += 0.5 {
		p := prescaleForFreq(f)
		if p < PrescaleMin || p > PrescaleMax {
			t.Fatalf("prescaleForFreq(%v) = %d outside [%d, %d]", f, p, PrescaleMin, PrescaleMax)
		}
		if p > prev {
			t.Fatalf("prescale not monotonic: f=%v gives %d after %d", f, p, prev)
		}
		prev = p
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ticks := []uint16{0, 1, 7, 255, 256, 1024, 2047, 2048, 4094, 4095}
	for _, on := range ticks {
		for _, off := range ticks {
			got, gotOff := decodePWM(encodePWM(on, off))
			if got != on || gotOff != off {
				t.Fatalf("round trip (%d, %d) -> (%d, %d)", on, off, got, gotOff)
			}
		}
	}
}

func TestEncodePWM_Layout(t *testing.T) {
	b := encodePWM(0x123, 0x456)
	want := [4]byte{0x23, 0x01, 0x56, 0x04}
	if b != want {
		t.Errorf("encodePWM(0x123, 0x456) = %#v, want %#v", b, want)
	}

	// High nibbles of the high bytes must stay clear for plain PWM.
	b = encodePWM(4095, 4095)
	if b[1]&0xF0 != 0 || b[3]&0xF0 != 0 {
		t.Errorf("reserved bits set in %#v", b)
	}
}

func TestEncodeFullOnOff(t *testing.T) {
	if got, want := encodeFullOn(), [4]byte{0, 0x10, 0, 0}; got != want {
		t.Errorf("encodeFullOn() = %#v, want %#v", got, want)
	}
	if got, want := encodeFullOff(), [4]byte{0, 0, 0, 0x10}; got != want {
		t.Errorf("encodeFullOff() = %#v, want %#v", got, want)
	}
}

func TestOffTickForDuty_Clamping(t *testing.T) {
	cases := []struct {
		duty float32
		want uint16
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 2048},
		{1, 4095},
		{1.5, 4095},
	}
	for _, c := range cases {
		if got := offTickForDuty(c.duty); got != c.want {
			t.Errorf("offTickForDuty(%v) = %d, want %d", c.duty, got, c.want)
		}
	}
}
