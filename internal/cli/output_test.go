package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Message(t *testing.T) {
	err := NewExitError(ExitFailure, "stale preflight")
	assert.Equal(t, "stale preflight", err.Error())

	wrapped := WrapExitError(ExitCommandError, "loading configuration", errors.New("no such file"))
	assert.Equal(t, "loading configuration: no such file", wrapped.Error())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flags")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	// Wrapped ExitErrors still surface their code.
	inner := NewExitError(ExitCommandError, "inner")
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", inner)))
}

func TestCurrency_PesoGrouping(t *testing.T) {
	assert.Equal(t, "$ 20.000", Currency(decimal.NewFromInt(20000)))
	assert.Equal(t, "$ 1.500.000", Currency(decimal.NewFromInt(1500000)))
	assert.Equal(t, "$ 0", Currency(decimal.Zero))
}

func TestCurrency_RoundsToWholePesos(t *testing.T) {
	assert.Equal(t, "$ 20.000", Currency(decimal.RequireFromString("19999.6")))
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	out := NewOutputFormatter("json", buf)
	require.True(t, out.JSON())

	require.NoError(t, out.EmitJSON(map[string]int{"pending": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["pending"])
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	out := NewOutputFormatter("text", buf)
	assert.False(t, out.JSON())

	out.Printf("pending: %d\n", 3)
	assert.Equal(t, "pending: 3\n", buf.String())
}
