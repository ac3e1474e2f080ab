package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteExitCodes(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })

	rootCmd.SetArgs([]string{"schema", "nonsense"})
	assert.Equal(t, 1, execute(context.Background()))

	rootCmd.SetArgs([]string{"schema", "baseline"})
	assert.Equal(t, 0, execute(context.Background()))
}
