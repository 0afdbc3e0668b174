package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"chain"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	out := stdout.String()
	assert.Contains(t, out, "blocking task resolved after 3 polls\n")
	assert.Contains(t, out, "recovered from \"flaky step failed\", retrying\n")
	assert.Contains(t, out, "second attempt\n")
	assert.Contains(t, out, "timeout fired\nafter timeout\n")
	assert.Contains(t, out, "interval tick\n")
	assert.Contains(t, stderr.String(), `"msg":"poller: task cancelled"`)
}

func TestUnknownCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"nope"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))
}
