package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())

	return out.String()
}

func TestProfilesCommand(t *testing.T) {
	out := execute(t, "profiles")
	assert.Equal(t, "cacheir\nspidermonkey\n", out)

	out = execute(t, "profiles", "spidermonkey")
	assert.Contains(t, out, "# active templates: [MapTransition]")
	assert.Contains(t, out, "code_prefix:")
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.True(t, strings.HasPrefix(out, "tierforge v"))
}
