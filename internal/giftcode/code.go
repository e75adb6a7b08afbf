package giftcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// sem 0/O, 1/I/L
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	groupSize = 4
	groups    = 3
)

// Generate devolve um código no formato XXXX-XXXX-XXXX
func Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	raw := make([]byte, 0, groupSize*groups)
	for i := 0; i < groupSize*groups; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		raw = append(raw, alphabet[n.Int64()])
	}
	return format(string(raw)), nil
}

// Normalize aceita o código digitado de qualquer jeito ("abcd efgh-jkmn")
func Normalize(input string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(input) {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return format(b.String())
}

func format(raw string) string {
	if len(raw) != groupSize*groups {
		return raw
	}
	parts := make([]string, 0, groups)
	for i := 0; i < len(raw); i += groupSize {
		parts = append(parts, raw[i:i+groupSize])
	}
	return strings.Join(parts, "-")
}

// Valid indica se o código normalizado tem o formato esperado
func Valid(code string) bool {
	if len(code) != groupSize*groups+groups-1 {
		return false
	}
	for i, r := range code {
		if (i+1)%(groupSize+1) == 0 {
			if r != '-' {
				return false
			}
			continue
		}
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
