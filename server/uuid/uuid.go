// Package uuid generates short, URL-safe random identifiers.
package uuid

import (
	"math/big"

	"github.com/google/uuid"
)

const alphabetBase62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// New returns a random (version 4) UUID encoded in base 62.
func New() string {
	value := uuid.New()

	return encodeBase62(value[:])
}

func encodeBase62(data []byte) string {
	var (
		value     big.Int
		remainder big.Int
		zero      big.Int
	)

	base := big.NewInt(int64(len(alphabetBase62)))

	value.SetBytes(data)

	result := make([]byte, 0, 22)

	for value.Cmp(&zero) != 0 {
		value.DivMod(&value, base, &remainder)
		result = append(result, alphabetBase62[remainder.Int64()])
	}

	return string(result)
}
