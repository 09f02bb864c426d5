package interest

import (
	"math/big"
	"testing"
)

// ratePerSecond1e9 is one ray plus 1e9, a small positive per-second accrual.
func ratePerSecond1e9() *big.Int {
	return new(big.Int).Add(new(big.Int).Set(Ray), big.NewInt(1_000_000_000))
}

func TestCompoundZeroDurationIsIdentity(t *testing.T) {
	factor := Compound(ratePerSecond1e9(), 0)
	if factor.Cmp(Ray) != 0 {
		t.Fatalf("zero duration factor = %s, want exactly one ray", factor)
	}
	amount := big.NewInt(1_000_000)
	if got := ApplyFactor(factor, amount); got.Cmp(amount) != 0 {
		t.Fatalf("identity factor changed amount: %s", got)
	}
}

func TestCompoundMonotonicInDuration(t *testing.T) {
	rate := ratePerSecond1e9()
	prev := Compound(rate, 0)
	for _, seconds := range []uint64{1, 60, 3600, 86_400, 30 * 86_400} {
		next := Compound(rate, seconds)
		if next.Cmp(prev) <= 0 {
			t.Fatalf("factor did not grow at %d seconds: %s <= %s", seconds, next, prev)
		}
		prev = next
	}
}

func TestCompoundSingleSecondEqualsRate(t *testing.T) {
	rate := ratePerSecond1e9()
	if got := Compound(rate, 1); got.Cmp(rate) != 0 {
		t.Fatalf("one second factor = %s, want %s", got, rate)
	}
}

func TestCompoundSplitsMultiplicatively(t *testing.T) {
	rate := ratePerSecond1e9()
	whole := Compound(rate, 7)
	split := RayMul(Compound(rate, 3), Compound(rate, 4))
	// Half-up rounding may differ by at most a few units in the last place.
	diff := new(big.Int).Sub(whole, split)
	diff.Abs(diff)
	if diff.Cmp(big.NewInt(16)) > 0 {
		t.Fatalf("split factor drifted: whole=%s split=%s", whole, split)
	}
}

func TestApplyFactorRoundsHalfUp(t *testing.T) {
	// factor = 1.5 ray applied to 1 should round 1.5 up to 2.
	factor := new(big.Int).Add(new(big.Int).Set(Ray), halfRay)
	if got := ApplyFactor(factor, big.NewInt(1)); got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("ApplyFactor(1.5 ray, 1) = %s, want 2", got)
	}
}

func TestApplyFactorNilInputs(t *testing.T) {
	if got := ApplyFactor(nil, big.NewInt(5)); got.Sign() != 0 {
		t.Fatalf("nil factor should yield zero, got %s", got)
	}
	if got := ApplyFactor(Ray, nil); got.Sign() != 0 {
		t.Fatalf("nil amount should yield zero, got %s", got)
	}
}
