package syntax

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
)

func TestDiffEdit(t *testing.T) {
	t.Parallel()

	dmp := diffmatchpatch.New()
	tests := []struct {
		name     string
		old, new string
		want     sitter.EditInput
	}{
		{
			name: "append line",
			old:  "x = 1\n",
			new:  "x = 1\ny = 2\n",
			want: sitter.EditInput{
				StartIndex: 6, OldEndIndex: 6, NewEndIndex: 12,
				StartPoint:  sitter.Point{Row: 1, Column: 0},
				OldEndPoint: sitter.Point{Row: 1, Column: 0},
				NewEndPoint: sitter.Point{Row: 2, Column: 0},
			},
		},
		{
			name: "replace token",
			old:  "x = 1\n",
			new:  "x = 42\n",
			want: sitter.EditInput{
				StartIndex: 4, OldEndIndex: 5, NewEndIndex: 6,
				StartPoint:  sitter.Point{Row: 0, Column: 4},
				OldEndPoint: sitter.Point{Row: 0, Column: 5},
				NewEndPoint: sitter.Point{Row: 0, Column: 6},
			},
		},
		{
			name: "multibyte",
			old:  "s = 'é'\n",
			new:  "s = 'éa'\n",
			want: sitter.EditInput{
				StartIndex: 7, OldEndIndex: 7, NewEndIndex: 8,
				StartPoint:  sitter.Point{Row: 0, Column: 7},
				OldEndPoint: sitter.Point{Row: 0, Column: 7},
				NewEndPoint: sitter.Point{Row: 0, Column: 8},
			},
		},
		{
			name: "delete all",
			old:  "x\n",
			new:  "",
			want: sitter.EditInput{
				StartIndex: 0, OldEndIndex: 2, NewEndIndex: 0,
				OldEndPoint: sitter.Point{Row: 1, Column: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := diffEdit(dmp, []byte(tt.old), []byte(tt.new))
			assert.True(t, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiffEdit_Unchanged(t *testing.T) {
	t.Parallel()

	_, changed := diffEdit(diffmatchpatch.New(), []byte("x = 1"), []byte("x = 1"))
	assert.False(t, changed)
}

func TestCommonAffixes_InvalidUTF8(t *testing.T) {
	t.Parallel()

	prefix, suffix := commonAffixes(diffmatchpatch.New(), []byte{'a', 0xff, 'b'}, []byte{'a', 0xfe, 'b'})
	assert.Equal(t, 1, prefix)
	assert.Equal(t, 1, suffix)
}

func TestPointAt(t *testing.T) {
	t.Parallel()

	text := []byte("ab\ncde\n")
	assert.Equal(t, sitter.Point{Row: 0, Column: 0}, pointAt(text, 0))
	assert.Equal(t, sitter.Point{Row: 0, Column: 2}, pointAt(text, 2))
	assert.Equal(t, sitter.Point{Row: 1, Column: 0}, pointAt(text, 3))
	assert.Equal(t, sitter.Point{Row: 1, Column: 3}, pointAt(text, 6))
	assert.Equal(t, sitter.Point{Row: 2, Column: 0}, pointAt(text, 7))
}
