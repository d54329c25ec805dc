package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// RandIntn returns a uniform random value in [0, n). It panics if got a
// non-positive parameter.
func RandIntn(n int) int {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}

	return int(r.Int64())
}

const float64Precision = 1 << 53

// RandFloat64 returns a uniform random value in [0, 1) with 53 bits of
// precision.
func RandFloat64() float64 {
	r, err := rand.Int(rand.Reader, big.NewInt(float64Precision))
	if err != nil {
		panic(err)
	}

	return float64(r.Int64()) / float64Precision
}

// PickDistinct returns k distinct values chosen uniformly at random from
// [0, n), in selection order. It runs a partial Fisher-Yates shuffle, so
// PickDistinct(n, n) is a uniform random permutation. It panics if k > n.
func PickDistinct(n, k int) []int {
	if k > n {
		panic("crypto: cannot pick more values than available")
	}

	values := make([]int, n)
	for i := range values {
		values[i] = i
	}

	for i := 0; i < k; i++ {
		j := i + RandIntn(n-i)
		values[i], values[j] = values[j], values[i]
	}

	return values[:k]
}

func SHA256Hex(b []byte) string {
	hashed := sha256.Sum256(b)
	return hex.EncodeToString(hashed[:])
}
