package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2025-09-03", "03.09.2025", "03.09.25", "03/09/2025"} {
		got, err := parseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	_, err := parseDate("Sept 3")
	assert.Error(t, err)
}

func TestDateRange(t *testing.T) {
	today := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

	r, err := dateRange("2025-09-01", "2025-09-03", 0, today)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Days())

	r, err = dateRange("", "", 7, today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, today, r.End)

	r, err = dateRange("", "", 0, today)
	require.NoError(t, err)
	assert.Equal(t, today, r.Start)
	assert.Equal(t, today, r.End)

	_, err = dateRange("2025-09-05", "2025-09-01", 0, today)
	assert.Error(t, err)
}
