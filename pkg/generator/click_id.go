package generator

import (
	"crypto/rand"
	"math/big"
)

const (
	base62Chars   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	ClickIDLength = 16
)

func GenerateClickID() (string, error) {
	return Generate(ClickIDLength)
}

// Generate returns a random base62 string of the given length.
func Generate(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(base62Chars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}

		b[i] = base62Chars[n.Int64()]
	}

	return string(b), nil
}
