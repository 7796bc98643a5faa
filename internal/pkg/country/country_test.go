package country

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_DefaultTable(t *testing.T) {
	table := Default()

	got := table.Lookup("6281234567890")
	require.NotNil(t, got)
	assert.Equal(t, "Indonesia", got.Name)
	assert.Equal(t, "ID", got.ShortName)

	assert.Nil(t, table.Lookup("9990000000"))
	assert.Nil(t, table.Lookup(""))
}

func TestLookup_LongestPrefixWins(t *testing.T) {
	table := NewTable([]Info{
		{Code: "1", Name: "United States", ShortName: "US"},
		{Code: "1242", Name: "Bahamas", ShortName: "BS"},
	})

	got := table.Lookup("12425550199")
	require.NotNil(t, got)
	assert.Equal(t, "Bahamas", got.Name)

	got = table.Lookup("12125550199")
	require.NotNil(t, got)
	assert.Equal(t, "United States", got.Name)
}

func TestLookup_ExactLengthPhone(t *testing.T) {
	table := Default()
	got := table.Lookup("62")
	require.NotNil(t, got)
	assert.Equal(t, "Indonesia", got.Name)
}
