package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github/chapool/yield-vault/internal/util"
	"golang.org/x/text/language"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("UTIL_TEST_STR", "value")
	assert.Equal(t, "value", util.GetEnv("UTIL_TEST_STR", "default"))
	assert.Equal(t, "default", util.GetEnv("UTIL_TEST_MISSING", "default"))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("UTIL_TEST_INT", "5")
	t.Setenv("UTIL_TEST_INT_BROKEN", "five")
	assert.Equal(t, 5, util.GetEnvAsInt("UTIL_TEST_INT", 3))
	assert.Equal(t, 3, util.GetEnvAsInt("UTIL_TEST_INT_BROKEN", 3))
	assert.Equal(t, int64(5), util.GetEnvAsInt64("UTIL_TEST_INT", 3))
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("UTIL_TEST_BOOL", "true")
	assert.True(t, util.GetEnvAsBool("UTIL_TEST_BOOL", false))
	assert.False(t, util.GetEnvAsBool("UTIL_TEST_BOOL_MISSING", false))
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("UTIL_TEST_DUR", "250ms")
	t.Setenv("UTIL_TEST_DUR_SECONDS", "4")
	assert.Equal(t, 250*time.Millisecond, util.GetEnvAsDuration("UTIL_TEST_DUR", time.Second))
	assert.Equal(t, 4*time.Second, util.GetEnvAsDuration("UTIL_TEST_DUR_SECONDS", time.Second))
	assert.Equal(t, time.Second, util.GetEnvAsDuration("UTIL_TEST_DUR_MISSING", time.Second))
}

func TestGetEnvAsStringArr(t *testing.T) {
	t.Setenv("UTIL_TEST_ARR", "https://a.example, https://b.example,,")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, util.GetEnvAsStringArr("UTIL_TEST_ARR", nil))
	assert.Equal(t, []string{"x"}, util.GetEnvAsStringArr("UTIL_TEST_ARR_MISSING", []string{"x"}))

	t.Setenv("UTIL_TEST_ARR_PIPE", "a|b")
	assert.Equal(t, []string{"a", "b"}, util.GetEnvAsStringArr("UTIL_TEST_ARR_PIPE", nil, "|"))
}

func TestGetEnvEnum(t *testing.T) {
	t.Setenv("UTIL_TEST_ENUM", "redeem")
	assert.Equal(t, "redeem", util.GetEnvEnum("UTIL_TEST_ENUM", "deposit", []string{"deposit", "redeem"}))

	t.Setenv("UTIL_TEST_ENUM", "withdraw")
	assert.Equal(t, "deposit", util.GetEnvEnum("UTIL_TEST_ENUM", "deposit", []string{"deposit", "redeem"}))
}

func TestGetEnvAsLanguageTag(t *testing.T) {
	t.Setenv("UTIL_TEST_LANG", "de")
	assert.Equal(t, language.German, util.GetEnvAsLanguageTag("UTIL_TEST_LANG", language.English))
	assert.Equal(t, language.English, util.GetEnvAsLanguageTag("UTIL_TEST_LANG_MISSING", language.English))
}

func TestGetSecret(t *testing.T) {
	t.Setenv("UTIL_TEST_SECRET", "configured")
	assert.Equal(t, "configured", util.GetSecret("UTIL_TEST_SECRET"))

	generated := util.GetSecret("UTIL_TEST_SECRET_MISSING")
	assert.Len(t, generated, 32)
	assert.Equal(t, generated, util.GetSecret("UTIL_TEST_SECRET_MISSING"))
	assert.NotEqual(t, generated, util.GetSecret("UTIL_TEST_OTHER_SECRET_MISSING"))
}
