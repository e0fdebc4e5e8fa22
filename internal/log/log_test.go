package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "***EMPTY***"},
		{"tiny", "abcd", "****"},
		{"short", "abcdefgh", "ab****gh"},
		{"long", "abcdefghijklmnop", "abcde******lmnop"},
		{"wa prefix stripped", "wa-abcdefghijklmnop", "abcde******lmnop"},
		{"bearer prefix stripped", "Bearer abcdefghijklmnop", "abcde******lmnop"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, MaskAPIKey(tt.input), tt.name)
	}
}

func TestMaskAPIKeyNeverLeaksMiddle(t *testing.T) {
	t.Parallel()

	masked := MaskAPIKey("wa-secret0000000000middle0000000000end42")
	require.NotContains(t, masked, "middle")
	require.True(t, strings.Contains(masked, "*"))
}
