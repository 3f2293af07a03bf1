package util

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

var (
	generatedSecrets   = map[string]string{}
	generatedSecretsMu sync.Mutex
)

func GetEnv(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}

	return defaultVal
}

func GetEnvEnum(key string, defaultVal string, allowedValues []string) string {
	if !ContainsString(allowedValues, defaultVal) {
		log.Panic().Str("key", key).Str("value", defaultVal).Msg("Default value is not in the allowed values list.")
	}

	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	if !ContainsString(allowedValues, val) {
		log.Error().Str("key", key).Str("value", val).Msg("Value is not allowed. Fallback to default value.")
		return defaultVal
	}

	return val
}

func GetEnvAsInt(key string, defaultVal int) int {
	strVal := GetEnv(key, "")

	if val, err := strconv.Atoi(strVal); err == nil {
		return val
	}

	return defaultVal
}

func GetEnvAsInt64(key string, defaultVal int64) int64 {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseInt(strVal, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func GetEnvAsBool(key string, defaultVal bool) bool {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseBool(strVal); err == nil {
		return val
	}

	return defaultVal
}

// GetEnvAsDuration reads a duration like "2s" or "500ms". Plain integers are seconds.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	strVal := GetEnv(key, "")
	if strVal == "" {
		return defaultVal
	}

	if val, err := time.ParseDuration(strVal); err == nil {
		return val
	}

	if val, err := strconv.Atoi(strVal); err == nil {
		return time.Duration(val) * time.Second
	}

	return defaultVal
}

// GetEnvAsStringArr reads a separated list, default separator is ",".
func GetEnvAsStringArr(key string, defaultVal []string, separator ...string) []string {
	strVal := GetEnv(key, "")

	if len(strVal) == 0 {
		return defaultVal
	}

	sep := ","
	if len(separator) >= 1 {
		sep = separator[0]
	}

	parts := strings.Split(strVal, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}

	return result
}

func GetEnvAsLanguageTag(key string, defaultVal language.Tag) language.Tag {
	strVal := GetEnv(key, "")

	if tag, err := language.Parse(strVal); err == nil {
		return tag
	}

	return defaultVal
}

// GetMgmtSecret returns the management secret used to protect probe endpoints.
// It is generated once per process if SERVER_MANAGEMENT_SECRET is unset.
func GetMgmtSecret(envKey string) string {
	return GetSecret(envKey)
}

// GetSecret returns the value of envKey. If it is unset, a random secret is
// generated once per process and key.
func GetSecret(envKey string) string {
	val := GetEnv(envKey, "")

	if len(val) > 0 {
		return val
	}

	generatedSecretsMu.Lock()
	defer generatedSecretsMu.Unlock()

	secret, ok := generatedSecrets[envKey]
	if !ok {
		secret = GenerateRandomHexString(16)
		generatedSecrets[envKey] = secret
		log.Warn().Str("envKey", envKey).Str("secret", secret).Msg("Could not retrieve secret from env key, using randomly generated one")
	}

	return secret
}
