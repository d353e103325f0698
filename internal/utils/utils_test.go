package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-spendora-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestToStringSlice(t *testing.T) {
	require.Equal(t, []string{"a"}, utils.ToStringSlice("a"))
	require.Equal(t, []string{"a", "b", "c"}, utils.ToStringSlice([]any{"a", []any{"b", "c"}, 3}))
	require.Equal(t, []string{"email: taken"}, utils.ToStringSlice(map[string]any{"email": []any{"taken"}}))
	require.Empty(t, utils.ToStringSlice(42.0))
}
