// Package abi reads grammar metadata that go-tree-sitter does not export.
//
// The tree-sitter runtime is compiled into the binary by the sitter package;
// the declarations below bind to those same symbols.
package abi

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

uint32_t ts_language_version(const void *self);
uint32_t ts_language_symbol_count(const void *self);
const char *ts_language_symbol_name(const void *self, uint16_t symbol);
uint16_t ts_language_symbol_for_name(const void *self, const char *string, uint32_t length, bool is_named);
uint32_t ts_language_field_count(const void *self);
const char *ts_language_field_name_for_id(const void *self, uint16_t id);
*/
import "C"

import (
	"unsafe"

	sitter "github.com/smacker/go-tree-sitter"
)

// Range of grammar ABI revisions the bundled engine accepts.
const (
	LanguageVersion              = 14
	MinCompatibleLanguageVersion = 13
)

// ptr returns the TSLanguage pointer held by a sitter.Language, whose only
// field is that pointer.
func ptr(l *sitter.Language) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(l))
}

// Version returns the ABI revision the grammar was generated for.
func Version(l *sitter.Language) uint32 {
	return uint32(C.ts_language_version(ptr(l)))
}

// SymbolCount returns the number of grammar symbols, including hidden ones.
func SymbolCount(l *sitter.Language) uint32 {
	return uint32(C.ts_language_symbol_count(ptr(l)))
}

// SymbolName returns the node type name for a symbol id.
func SymbolName(l *sitter.Language, id uint16) string {
	s := C.ts_language_symbol_name(ptr(l), C.uint16_t(id))
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

// SymbolForName returns the symbol id for a node type name, or 0 if the
// grammar has no such symbol.
func SymbolForName(l *sitter.Language, name string, named bool) uint16 {
	if name == "" {
		return 0
	}
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	return uint16(C.ts_language_symbol_for_name(ptr(l), cs, C.uint32_t(len(name)), C.bool(named)))
}

// FieldCount returns the number of named fields. Field ids run 1..FieldCount.
func FieldCount(l *sitter.Language) uint32 {
	return uint32(C.ts_language_field_count(ptr(l)))
}

// FieldName returns the name of a field id, or "" for 0 and unknown ids.
func FieldName(l *sitter.Language, id uint16) string {
	s := C.ts_language_field_name_for_id(ptr(l), C.uint16_t(id))
	if s == nil {
		return ""
	}
	return C.GoString(s)
}
