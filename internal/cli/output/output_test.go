package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveModeResolvesAuto(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r = NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeJSON)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestEmptyModeDefaultsToAuto(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, "")
	assert.Equal(t, ModeText, r.EffectiveMode())
}

func TestPlainOutputWhenNotATerminal(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeText)
	r.Success("done")
	assert.Equal(t, "done\n", out.String())
}

func TestFailureGoesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)
	r.Failure("boom")
	assert.Empty(t, out.String())
	assert.Equal(t, "boom\n", errOut.String())
}

func TestJSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"steps": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["steps"])
}

func TestPrintf(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeText)
	r.Printf("built %d modules\n", 2)
	assert.Equal(t, "built 2 modules\n", out.String())
}
