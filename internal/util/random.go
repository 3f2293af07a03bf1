package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

func GenerateRandomHexString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Panic().Err(err).Msg("Failed to generate random bytes")
	}

	return hex.EncodeToString(b)
}
