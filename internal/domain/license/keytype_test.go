package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyType(t *testing.T) {
	tests := []struct {
		raw  string
		want KeyType
	}{
		{"1day", KeyTypeDay},
		{" Weekly ", KeyTypeWeek},
		{"1M", KeyTypeMonth},
	}
	for _, tt := range tests {
		got, err := ParseKeyType(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseKeyType("lifetime")
	assert.Error(t, err)
}

func TestExpiresAt(t *testing.T) {
	activated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	day, err := KeyTypeDay.ExpiresAt(activated)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), day)

	week, err := KeyTypeWeek.ExpiresAt(activated)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), week)

	month, err := KeyTypeMonth.ExpiresAt(activated)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), month)

	_, err = KeyType("forever").ExpiresAt(activated)
	assert.Error(t, err)
}

func TestRankAndValidity(t *testing.T) {
	assert.Less(t, KeyTypeDay.Rank(), KeyTypeWeek.Rank())
	assert.Less(t, KeyTypeWeek.Rank(), KeyTypeMonth.Rank())
	assert.True(t, KeyTypeMonth.IsValid())
	assert.False(t, KeyType("weekly").IsValid())
	assert.Equal(t, -1, KeyType("").Rank())
}
