package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"  +1 (555) 010-9999 ": "+15550109999",
		"555.010.9999":         "5550109999",
		"12ab":                 "12ab",
		"":                     "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestMapPtr(t *testing.T) {
	require.Nil(t, MapPtr(nil, strings.TrimSpace))

	in := "  x "
	out := MapPtr(&in, strings.TrimSpace)
	require.Equal(t, "x", *out)
	require.Equal(t, "  x ", in)
}
