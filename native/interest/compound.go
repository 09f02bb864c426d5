package interest

import "math/big"

// Ray is the 1e27 fixed-point unit used for per-second accrual factors.
var Ray = mustBigInt("1000000000000000000000000000")

var halfRay = new(big.Int).Rsh(Ray, 1)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// RayMul multiplies two ray-scaled values with half-up rounding.
func RayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	product.Quo(product, Ray)
	return product
}

// ApplyFactor scales an unscaled amount by a ray factor, rounding half-up.
func ApplyFactor(factor, amount *big.Int) *big.Int {
	if factor == nil || amount == nil {
		return big.NewInt(0)
	}
	scaled := new(big.Int).Mul(amount, factor)
	scaled.Add(scaled, halfRay)
	scaled.Quo(scaled, Ray)
	return scaled
}

// Compound raises a ray-scaled per-second factor to the given number of
// seconds using exponentiation by squaring. A zero duration returns exactly
// Ray so callers can apply the result unconditionally.
func Compound(ratePerSecond *big.Int, seconds uint64) *big.Int {
	if ratePerSecond == nil || ratePerSecond.Sign() == 0 {
		return new(big.Int).Set(Ray)
	}
	result := new(big.Int).Set(Ray)
	base := new(big.Int).Set(ratePerSecond)
	for seconds > 0 {
		if seconds&1 == 1 {
			result = RayMul(result, base)
		}
		seconds >>= 1
		if seconds > 0 {
			base = RayMul(base, base)
		}
	}
	return result
}
