package abi

import (
	"testing"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_WithinEngineRange(t *testing.T) {
	t.Parallel()

	v := Version(python.GetLanguage())
	assert.GreaterOrEqual(t, v, uint32(MinCompatibleLanguageVersion))
	assert.LessOrEqual(t, v, uint32(LanguageVersion))
}

func TestSymbolNameRoundTrip(t *testing.T) {
	t.Parallel()

	lang := python.GetLanguage()
	id := SymbolForName(lang, "module", true)
	require.NotZero(t, id)
	assert.Equal(t, "module", SymbolName(lang, id))
	assert.Greater(t, SymbolCount(lang), uint32(id))
}

func TestSymbolForName_Unknown(t *testing.T) {
	t.Parallel()

	assert.Zero(t, SymbolForName(golang.GetLanguage(), "no_such_symbol", true))
	assert.Zero(t, SymbolForName(golang.GetLanguage(), "", true))
}

func TestFieldNames(t *testing.T) {
	t.Parallel()

	lang := golang.GetLanguage()
	count := FieldCount(lang)
	require.NotZero(t, count)

	names := make(map[string]bool)
	for id := uint16(1); id <= uint16(count); id++ {
		names[FieldName(lang, id)] = true
	}
	assert.True(t, names["name"], "go grammar should define a name field")
	assert.True(t, names["body"], "go grammar should define a body field")
	assert.Equal(t, "", FieldName(lang, 0))
}
