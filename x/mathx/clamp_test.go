package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5,0,3) = %d", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Errorf("Clamp(-1,0,3) = %d", got)
	}
	if got := Clamp(2, 0, 3); got != 2 {
		t.Errorf("Clamp(2,0,3) = %d", got)
	}
	// Swapped bounds.
	if got := Clamp(5, 3, 0); got != 3 {
		t.Errorf("Clamp(5,3,0) = %d", got)
	}
	if got := Clamp(float32(1.5), 0, 1); got != 1 {
		t.Errorf("Clamp(1.5,0,1) = %v", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(50.0, 24.0, 1526.0) {
		t.Error("50 should be between 24 and 1526")
	}
	if Between(23.9, 24.0, 1526.0) {
		t.Error("23.9 should not be between 24 and 1526")
	}
	if !Between(7, 10, 0) {
		t.Error("swapped bounds should still match")
	}
}
