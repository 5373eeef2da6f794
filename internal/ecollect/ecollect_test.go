package ecollect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddIgnoresNil(t *testing.T) {
	var c Collector
	c.Add(nil)
	require.False(t, c.HasErrors())
	c.Add(errors.New("boom"))
	require.True(t, c.HasErrors())
	require.Len(t, c.Errors, 1)
}

func TestAddf(t *testing.T) {
	var c Collector
	c.Addf("bad value %d", 42)
	require.Len(t, c.Errors, 1)
	require.Contains(t, c.Errors[0].Error(), "bad value 42")
}

func TestCombinedNilWhenEmpty(t *testing.T) {
	var c Collector
	require.Nil(t, c.Combined())
}

func TestCombinedChainsEveryError(t *testing.T) {
	var c Collector
	c.Add(errors.New("first"))
	c.Add(errors.New("second"))
	combined := c.Combined()
	require.NotNil(t, combined)
	require.Contains(t, combined.Error(), "first")
	require.Contains(t, fmt.Sprintf("%+v", combined), "second")
}
