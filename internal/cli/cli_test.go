package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/tierforge/internal/program"
)

func TestPrintVersion(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, PrintVersion(&text, "tierforge", false))
	assert.True(t, strings.HasPrefix(text.String(), "tierforge v"+Version+"\n"))
	assert.Contains(t, text.String(), "Go Version: ")

	var js bytes.Buffer
	require.NoError(t, PrintVersion(&js, "tierforge", true))

	var decoded struct {
		Tool        string      `json:"tool"`
		VersionInfo VersionInfo `json:"version_info"`
	}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "tierforge", decoded.Tool)
	assert.Equal(t, Version, decoded.VersionInfo.Version)
}

func TestWriteProgram(t *testing.T) {
	p := program.New(program.Meta{ID: "x", Template: "GetPropIC", Seed: 3}, []program.Instruction{
		{Op: program.OpLoadInteger, Outputs: []program.Variable{0}, Int: 1},
	}, nil)

	var ir bytes.Buffer
	require.NoError(t, WriteProgram(&ir, p, FormatIR))
	assert.True(t, strings.HasPrefix(ir.String(), "// id=x template=GetPropIC seed=3\n"))
	assert.Contains(t, ir.String(), p.Format())

	var js bytes.Buffer
	require.NoError(t, WriteProgram(&js, p, FormatJSON))

	var back program.Program
	require.NoError(t, json.Unmarshal(js.Bytes(), &back))
	assert.Equal(t, p.Meta(), back.Meta())

	assert.Error(t, WriteProgram(&js, p, "js"))
}
