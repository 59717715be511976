package clix

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("limit", 20, "")
	flags.Int("offset", 0, "")
	require.NoError(t, flags.Parse([]string{"--limit=0", "--offset=-3"}))

	p, err := ParsePagination(flags)
	require.NoError(t, err)
	assert.Equal(t, PaginationParams{Limit: 20, Offset: 0}, p)
}

func TestParseList(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("times", "", "")
	require.NoError(t, flags.Parse([]string{"--times", "0 9 * * * ; ;0 18 * * 1-5"}))

	items, err := ParseList(flags, "times", ";")
	require.NoError(t, err)
	assert.Equal(t, []string{"0 9 * * *", "0 18 * * 1-5"}, items)

	_, err = ParseList(flags, "missing", ";")
	assert.Error(t, err)
}
