package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

func TestTimesKey_RoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	key := NewTimesKey(3829372, 3119372, entities.LocalDate{Year: 2020, Month: time.April, Day: 20}, loc)
	assert.Equal(t, "3829372:3119372:2020-04-20:America/New_York", key.String())

	parsed, err := ParseTimesKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestTimesKey_RoundTripZoneWithSlashesAndUTC(t *testing.T) {
	for _, zone := range []string{"UTC", "America/Argentina/Buenos_Aires", "Etc/GMT+5"} {
		loc, err := time.LoadLocation(zone)
		require.NoError(t, err)

		key := NewTimesKey(1, 2, entities.LocalDate{Year: 2021, Month: time.December, Day: 31}, loc)
		parsed, err := ParseTimesKey(key.String())
		require.NoError(t, err, zone)
		assert.Equal(t, key, parsed, zone)
	}
}

func TestParseTimesKey_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"1:2:2020-04-20",
		"x:2:2020-04-20:UTC",
		"1:y:2020-04-20:UTC",
		"1:2:2020-13-01:UTC",
		"1:2:2020-04-20:Nowhere/Special",
	} {
		_, err := ParseTimesKey(s)
		assert.Error(t, err, s)
	}
}

func TestClassesKey_RoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	key := NewClassesKey(entities.YearMonth{Year: 2020, Month: time.April}, loc)
	assert.Equal(t, "2020-04:America/New_York", key.String())

	parsed, err := ParseClassesKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseClassesKey("2020-04")
	assert.Error(t, err)
}
