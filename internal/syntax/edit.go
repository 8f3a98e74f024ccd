package syntax

import (
	"bytes"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	sitter "github.com/smacker/go-tree-sitter"
)

// diffEdit describes the change from oldText to newText as one edit covering
// everything between their common prefix and common suffix.
func diffEdit(dmp *diffmatchpatch.DiffMatchPatch, oldText, newText []byte) (sitter.EditInput, bool) {
	if bytes.Equal(oldText, newText) {
		return sitter.EditInput{}, false
	}

	prefix, suffix := commonAffixes(dmp, oldText, newText)
	oldEnd := len(oldText) - suffix
	newEnd := len(newText) - suffix

	return sitter.EditInput{
		StartIndex:  uint32(prefix),
		OldEndIndex: uint32(oldEnd),
		NewEndIndex: uint32(newEnd),
		StartPoint:  pointAt(oldText, prefix),
		OldEndPoint: pointAt(oldText, oldEnd),
		NewEndPoint: pointAt(newText, newEnd),
	}, true
}

// commonAffixes returns the byte lengths of the shared prefix and of the
// shared suffix of the remainders. diffmatchpatch measures in runes, so
// invalid UTF-8 falls back to a byte comparison.
func commonAffixes(dmp *diffmatchpatch.DiffMatchPatch, a, b []byte) (int, int) {
	if !utf8.Valid(a) || !utf8.Valid(b) {
		return byteAffixes(a, b)
	}

	sa, sb := string(a), string(b)
	prefix := runeBytes(sa, dmp.DiffCommonPrefix(sa, sb))

	ra, rb := sa[prefix:], sb[prefix:]
	n := dmp.DiffCommonSuffix(ra, rb)
	runes := []rune(ra)
	suffix := len(string(runes[len(runes)-n:]))
	return prefix, suffix
}

// runeBytes returns the byte length of the first n runes of s.
func runeBytes(s string, n int) int {
	off := 0
	for i := 0; i < n && off < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

func byteAffixes(a, b []byte) (int, int) {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return prefix, suffix
}

// pointAt converts a byte offset into a row/byte-column point.
func pointAt(text []byte, offset int) sitter.Point {
	head := text[:offset]
	row := bytes.Count(head, []byte{'\n'})
	col := offset
	if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
		col = offset - i - 1
	}
	return sitter.Point{Row: uint32(row), Column: uint32(col)}
}
