package syntax

import (
	"fmt"
	"math"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/arbor/internal/abi"
)

// Language is a compiled grammar. It is immutable once constructed and may be
// shared freely between goroutines.
//
// Symbol and field names are copied out of the grammar when the Language is
// built, so strings handed out by Node.Kind and TreeCursor.FieldName live as
// long as the Language, independent of any tree.
type Language struct {
	name    string
	version uint32
	raw     *sitter.Language

	kinds    []string
	fields   []string // index 0 is ""
	fieldIDs map[string]uint16
}

// NewLanguage wraps an engine grammar under the given name.
func NewLanguage(name string, raw *sitter.Language) (*Language, error) {
	if raw == nil {
		return nil, fmt.Errorf("syntax: language %q: nil grammar", name)
	}

	l := &Language{
		name:    name,
		version: abi.Version(raw),
		raw:     raw,
	}

	symbols := abi.SymbolCount(raw)
	l.kinds = make([]string, symbols)
	for id := range symbols {
		l.kinds[id] = abi.SymbolName(raw, uint16(id))
	}

	fields := abi.FieldCount(raw)
	l.fields = make([]string, fields+1)
	l.fieldIDs = make(map[string]uint16, fields)
	for id := uint16(1); uint32(id) <= fields; id++ {
		name := abi.FieldName(raw, id)
		l.fields[id] = name
		l.fieldIDs[name] = id
	}

	return l, nil
}

// Name returns the registry name of the grammar, e.g. "python".
func (l *Language) Name() string { return l.name }

// Version returns the grammar's ABI revision.
func (l *Language) Version() uint32 { return l.version }

// KindCount returns the number of symbols defined by the grammar.
func (l *Language) KindCount() int { return len(l.kinds) }

// Built-in symbols the engine reserves at the top of the id space.
const (
	errorKindID       uint16 = math.MaxUint16
	errorRepeatKindID uint16 = math.MaxUint16 - 1
)

// KindName returns the node type name for a symbol id, or "" if out of range.
func (l *Language) KindName(id uint16) string {
	switch id {
	case errorKindID:
		return "ERROR"
	case errorRepeatKindID:
		return "_ERROR"
	}
	if int(id) >= len(l.kinds) {
		return ""
	}
	return l.kinds[id]
}

// KindID returns the symbol id for a node type name. named selects between
// a named rule and an anonymous token with the same spelling.
func (l *Language) KindID(name string, named bool) (uint16, bool) {
	id := abi.SymbolForName(l.raw, name, named)
	return id, id != 0
}

// FieldCount returns the number of fields the grammar defines.
func (l *Language) FieldCount() int { return len(l.fields) - 1 }

// FieldName returns the name for a field id, or "" for 0 and unknown ids.
func (l *Language) FieldName(id uint16) string {
	if int(id) >= len(l.fields) {
		return ""
	}
	return l.fields[id]
}

// FieldID returns the id for a field name.
func (l *Language) FieldID(name string) (uint16, bool) {
	id, ok := l.fieldIDs[name]
	return id, ok
}

// Compatible reports whether the bundled engine accepts this grammar.
func (l *Language) Compatible() bool {
	return l.version >= abi.MinCompatibleLanguageVersion && l.version <= abi.LanguageVersion
}

// String implements fmt.Stringer.
func (l *Language) String() string {
	return fmt.Sprintf("%s (abi %d)", l.name, l.version)
}

// Raw returns the engine grammar.
func (l *Language) Raw() *sitter.Language { return l.raw }
