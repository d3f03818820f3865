package utils

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// DefaultDigits is the alphabet strike IDs are encoded with.
const DefaultDigits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-/=[];',."

// MaxBase is the largest base DefaultDigits can express.
var MaxBase = len(DefaultDigits)

var (
	ErrInvalidBase  = errors.New("invalid base")
	ErrInvalidDigit = errors.New("invalid digit")
)

// ConvertBase converts value between bases using DefaultDigits. An empty value
// converts to "0".
func ConvertBase(value string, from, to int) (string, error) {
	return ConvertBaseDigits(value, from, to, DefaultDigits)
}

func ConvertBaseDigits(value string, from, to int, digits string) (string, error) {
	if from < 2 || from > len(digits) {
		return "", fmt.Errorf("%w: source base must be between 2 and %d", ErrInvalidBase, len(digits))
	}
	if to < 2 || to > len(digits) {
		return "", fmt.Errorf("%w: output base must be between 2 and %d", ErrInvalidBase, len(digits))
	}

	source := big.NewInt(int64(from))
	decimal := new(big.Int)
	for _, digit := range value {
		index := strings.IndexRune(digits, digit)
		if index < 0 || index >= from {
			return "", fmt.Errorf("%w %q for base %d", ErrInvalidDigit, digit, from)
		}
		decimal.Mul(decimal, source)
		decimal.Add(decimal, big.NewInt(int64(index)))
	}

	if decimal.Sign() == 0 {
		return "0", nil
	}

	out := big.NewInt(int64(to))
	remainder := new(big.Int)
	var encoded []byte
	for decimal.Sign() > 0 {
		decimal.QuoRem(decimal, out, remainder)
		encoded = append(encoded, digits[remainder.Int64()])
	}
	for i, j := 0, len(encoded)-1; i < j; i, j = i+1, j-1 {
		encoded[i], encoded[j] = encoded[j], encoded[i]
	}
	return string(encoded), nil
}
