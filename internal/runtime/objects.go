package runtime

import (
	"context"
	"fmt"
	"math"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/syntax"
)

// Script-visible types. Each adapter embeds a builtins module so attribute
// lookup and method calls go through Risor's normal module machinery; the
// adapter only overrides identity and display.
const (
	languageType object.Type = "language"
	parserType   object.Type = "parser"
	treeType     object.Type = "tree"
	nodeType     object.Type = "node"
	cursorType   object.Type = "tree_cursor"
)

func newAdapter(name string, fns map[string]object.BuiltinFunction) *object.Module {
	contents := make(map[string]object.Object, len(fns))
	for method, fn := range fns {
		contents[method] = object.NewBuiltin(method, fn)
	}
	return object.NewBuiltinsModule(name, contents)
}

// nullary adapts a method that takes no arguments.
func nullary(name string, fn func() object.Object) object.BuiltinFunction {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(name, 0, len(args))
		}
		return fn()
	}
}

// unaryInt adapts a method that takes one integer argument.
func unaryInt(name string, fn func(int64) object.Object) object.BuiltinFunction {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		v, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return fn(v)
	}
}

// isByteOffset reports whether v fits a uint32 byte offset.
func isByteOffset(v int64) bool {
	return v >= 0 && v <= math.MaxUint32
}

// unaryString adapts a method that takes one string argument.
func unaryString(name string, fn func(string) object.Object) object.BuiltinFunction {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		v, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return fn(v)
	}
}

func stringOrNil(s string) object.Object {
	if s == "" {
		return object.Nil
	}
	return object.NewString(s)
}

func pointMap(p syntax.Point) object.Object {
	return object.NewMap(map[string]object.Object{
		"row":    object.NewInt(int64(p.Row)),
		"column": object.NewInt(int64(p.Column)),
	})
}

// env is the per-evaluation context shared by every adapter a script
// creates: the scope that owns them and the settings new parsers inherit.
type env struct {
	scope      *evalScope
	registry   *syntax.Registry
	parserOpts []syntax.ParserOption
}

// resolveLanguage accepts a language object or a registry name.
func (e *env) resolveLanguage(fn string, arg object.Object) (*syntax.Language, object.Object) {
	switch v := arg.(type) {
	case *languageObject:
		return v.lang, nil
	case *object.String:
		l, ok := e.registry.Lookup(v.Value())
		if !ok {
			return nil, object.Errorf("%s: unsupported language %q", fn, v.Value())
		}
		return l, nil
	default:
		return nil, object.Errorf("%s: expected language or string, got %s", fn, arg.Type())
	}
}

// --- Language ---

type languageObject struct {
	*object.Module
	lang *syntax.Language
}

func (e *env) wrapLanguage(l *syntax.Language) object.Object {
	if l == nil {
		return object.Nil
	}
	o := &languageObject{lang: l}
	o.Module = newAdapter("language", map[string]object.BuiltinFunction{
		"name":        nullary("name", func() object.Object { return object.NewString(l.Name()) }),
		"version":     nullary("version", func() object.Object { return object.NewInt(int64(l.Version())) }),
		"kind_count":  nullary("kind_count", func() object.Object { return object.NewInt(int64(l.KindCount())) }),
		"field_count": nullary("field_count", func() object.Object { return object.NewInt(int64(l.FieldCount())) }),
		"kind_name": unaryInt("kind_name", func(id int64) object.Object {
			if id < 0 || id > math.MaxUint16 {
				return object.Nil
			}
			return stringOrNil(l.KindName(uint16(id)))
		}),
		"field_name": unaryInt("field_name", func(id int64) object.Object {
			if id < 0 || id > math.MaxUint16 {
				return object.Nil
			}
			return stringOrNil(l.FieldName(uint16(id)))
		}),
		"field_id": unaryString("field_id", func(name string) object.Object {
			id, ok := l.FieldID(name)
			if !ok {
				return object.Nil
			}
			return object.NewInt(int64(id))
		}),
		"kind_id": func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) < 1 || len(args) > 2 {
				return object.Errorf("kind_id: expected 1 or 2 arguments, got %d", len(args))
			}
			name, err := toString(args[0])
			if err != nil {
				return object.Errorf("kind_id: %v", err)
			}
			named := true
			if len(args) == 2 {
				named = args[1].IsTruthy()
			}
			id, ok := l.KindID(name, named)
			if !ok {
				return object.Nil
			}
			return object.NewInt(int64(id))
		},
	})
	return o
}

func (o *languageObject) Type() object.Type      { return languageType }
func (o *languageObject) Inspect() string        { return fmt.Sprintf("language(%s)", o.lang.Name()) }
func (o *languageObject) Interface() interface{} { return o.lang }

func (o *languageObject) Equals(other object.Object) object.Object {
	if v, ok := other.(*languageObject); ok {
		return object.NewBool(v.lang == o.lang)
	}
	return object.False
}

// --- Parser ---

type parserObject struct {
	*object.Module
	parser *syntax.Parser
}

func (e *env) newParser() *parserObject {
	p := syntax.NewParser(e.parserOpts...)
	e.scope.track(p.Close)

	o := &parserObject{parser: p}
	o.Module = newAdapter("parser", map[string]object.BuiltinFunction{
		"set_language": func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.NewArgsError("set_language", 1, len(args))
			}
			lang, errObj := e.resolveLanguage("set_language", args[0])
			if errObj != nil {
				return errObj
			}
			if err := p.SetLanguage(lang); err != nil {
				return object.NewError(err)
			}
			return object.Nil
		},
		"language": nullary("language", func() object.Object {
			return e.wrapLanguage(p.Language())
		}),
		"parse": func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) < 1 || len(args) > 2 {
				return object.Errorf("parse: expected 1 or 2 arguments, got %d", len(args))
			}
			src, err := toBytes(args[0])
			if err != nil {
				return object.Errorf("parse: %v", err)
			}
			var old *syntax.Tree
			if len(args) == 2 && args[1] != object.Nil {
				t, ok := args[1].(*treeObject)
				if !ok {
					return object.Errorf("parse: old tree must be a tree, got %s", args[1].Type())
				}
				old = t.tree
			}
			tree, err := p.Parse(ctx, src, old)
			if err != nil {
				return object.NewError(err)
			}
			return e.ownTree(tree)
		},
		"reparse": func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 2 {
				return object.NewArgsError("reparse", 2, len(args))
			}
			old, ok := args[0].(*treeObject)
			if !ok {
				return object.Errorf("reparse: old tree must be a tree, got %s", args[0].Type())
			}
			src, err := toBytes(args[1])
			if err != nil {
				return object.Errorf("reparse: %v", err)
			}
			tree, err := p.Reparse(ctx, old.tree, src)
			if err != nil {
				return object.NewError(err)
			}
			return e.ownTree(tree)
		},
	})
	return o
}

func (o *parserObject) Type() object.Type      { return parserType }
func (o *parserObject) Interface() interface{} { return o.parser }

func (o *parserObject) Inspect() string {
	if l := o.parser.Language(); l != nil {
		return fmt.Sprintf("parser(%s)", l.Name())
	}
	return "parser()"
}

// --- Tree ---

type treeObject struct {
	*object.Module
	tree *syntax.Tree
}

// ownTree wraps a tree the script created; the scope closes it.
func (e *env) ownTree(t *syntax.Tree) object.Object {
	e.scope.track(t.Close)
	return e.wrapTree(t, true)
}

// wrapTree exposes t to scripts. Only owned trees may be closed by the
// script; a host tree outlives the evaluation and stays open.
func (e *env) wrapTree(t *syntax.Tree, owned bool) object.Object {
	o := &treeObject{tree: t}
	o.Module = newAdapter("tree", map[string]object.BuiltinFunction{
		"root_node":  nullary("root_node", func() object.Object { return e.wrapNode(t.RootNode()) }),
		"walk":       nullary("walk", func() object.Object { return e.ownCursor(t.Walk()) }),
		"language":   nullary("language", func() object.Object { return e.wrapLanguage(t.Language()) }),
		"text":       nullary("text", func() object.Object { return object.NewString(string(t.Text())) }),
		"has_error":  nullary("has_error", func() object.Object { return object.NewBool(t.HasError()) }),
		"node_count": nullary("node_count", func() object.Object { return object.NewInt(int64(t.NodeCount())) }),
		"sexp":       nullary("sexp", func() object.Object { return object.NewString(t.String()) }),
		"closed":     nullary("closed", func() object.Object { return object.NewBool(t.Closed()) }),
		"clone": nullary("clone", func() object.Object {
			c := t.Clone()
			if c == nil {
				return object.NewError(syntax.ErrTreeClosed)
			}
			return e.ownTree(c)
		}),
		"close": nullary("close", func() object.Object {
			if !owned {
				return object.Errorf("close: tree is owned by the host")
			}
			t.Close()
			return object.Nil
		}),
	})
	return o
}

func (o *treeObject) Type() object.Type      { return treeType }
func (o *treeObject) Inspect() string        { return fmt.Sprintf("tree(%s)", o.tree.Language().Name()) }
func (o *treeObject) Interface() interface{} { return o.tree }

// --- Node ---

type nodeObject struct {
	*object.Module
	node syntax.Node
}

// wrapNode returns nil for the null node so scripts can test results with
// a plain truthiness check.
func (e *env) wrapNode(n syntax.Node) object.Object {
	if n.IsNull() {
		return object.Nil
	}
	o := &nodeObject{node: n}
	o.Module = newAdapter("node", map[string]object.BuiltinFunction{
		"id":         nullary("id", func() object.Object { return object.NewInt(int64(n.ID())) }),
		"kind_id":    nullary("kind_id", func() object.Object { return object.NewInt(int64(n.KindID())) }),
		"kind":       nullary("kind", func() object.Object { return object.NewString(n.Kind()) }),
		"language":   nullary("language", func() object.Object { return e.wrapLanguage(n.Language()) }),
		"is_named":   nullary("is_named", func() object.Object { return object.NewBool(n.IsNamed()) }),
		"is_missing": nullary("is_missing", func() object.Object { return object.NewBool(n.IsMissing()) }),
		"is_extra":   nullary("is_extra", func() object.Object { return object.NewBool(n.IsExtra()) }),
		"is_error":   nullary("is_error", func() object.Object { return object.NewBool(n.IsError()) }),
		"has_error":  nullary("has_error", func() object.Object { return object.NewBool(n.HasError()) }),
		"start_byte": nullary("start_byte", func() object.Object { return object.NewInt(int64(n.StartByte())) }),
		"end_byte":   nullary("end_byte", func() object.Object { return object.NewInt(int64(n.EndByte())) }),
		"start_point": nullary("start_point", func() object.Object { return pointMap(n.StartPoint()) }),
		"end_point":   nullary("end_point", func() object.Object { return pointMap(n.EndPoint()) }),
		"text":        nullary("text", func() object.Object { return object.NewString(n.Text()) }),
		"sexp":        nullary("sexp", func() object.Object { return object.NewString(n.String()) }),
		"field_name":  nullary("field_name", func() object.Object { return stringOrNil(n.FieldName()) }),
		"parent":      nullary("parent", func() object.Object { return e.wrapNode(n.Parent()) }),
		"child_count": nullary("child_count", func() object.Object { return object.NewInt(int64(n.ChildCount())) }),
		"named_child_count": nullary("named_child_count", func() object.Object {
			return object.NewInt(int64(n.NamedChildCount()))
		}),
		"child": unaryInt("child", func(i int64) object.Object { return e.wrapNode(n.Child(int(i))) }),
		"named_child": unaryInt("named_child", func(i int64) object.Object {
			return e.wrapNode(n.NamedChild(int(i)))
		}),
		"child_by_field_name": unaryString("child_by_field_name", func(name string) object.Object {
			return e.wrapNode(n.ChildByFieldName(name))
		}),
		"children": nullary("children", func() object.Object {
			items := make([]object.Object, 0, n.ChildCount())
			for i := range n.ChildCount() {
				items = append(items, e.wrapNode(n.Child(i)))
			}
			return object.NewList(items)
		}),
		"named_children": nullary("named_children", func() object.Object {
			items := make([]object.Object, 0, n.NamedChildCount())
			for i := range n.NamedChildCount() {
				items = append(items, e.wrapNode(n.NamedChild(i)))
			}
			return object.NewList(items)
		}),
		"next_sibling":       nullary("next_sibling", func() object.Object { return e.wrapNode(n.NextSibling()) }),
		"prev_sibling":       nullary("prev_sibling", func() object.Object { return e.wrapNode(n.PrevSibling()) }),
		"next_named_sibling": nullary("next_named_sibling", func() object.Object { return e.wrapNode(n.NextNamedSibling()) }),
		"prev_named_sibling": nullary("prev_named_sibling", func() object.Object { return e.wrapNode(n.PrevNamedSibling()) }),
		"descendant_for_byte_range": func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 2 {
				return object.NewArgsError("descendant_for_byte_range", 2, len(args))
			}
			start, err := toInt64(args[0])
			if err != nil {
				return object.Errorf("descendant_for_byte_range: %v", err)
			}
			end, err := toInt64(args[1])
			if err != nil {
				return object.Errorf("descendant_for_byte_range: %v", err)
			}
			if !isByteOffset(start) || !isByteOffset(end) {
				return object.Nil
			}
			return e.wrapNode(n.DescendantForByteRange(uint32(start), uint32(end)))
		},
		"walk": nullary("walk", func() object.Object { return e.ownCursor(n.Walk()) }),
	})
	return o
}

func (o *nodeObject) Type() object.Type      { return nodeType }
func (o *nodeObject) Interface() interface{} { return o.node }

func (o *nodeObject) Inspect() string {
	p := o.node.StartPoint()
	return fmt.Sprintf("node(%s %d:%d)", o.node.Kind(), p.Row, p.Column)
}

func (o *nodeObject) Equals(other object.Object) object.Object {
	if v, ok := other.(*nodeObject); ok {
		return object.NewBool(v.node.Equal(o.node))
	}
	return object.False
}

// --- TreeCursor ---

type cursorObject struct {
	*object.Module
	cursor *syntax.TreeCursor
}

// ownCursor wraps a cursor the script created; the scope closes it.
func (e *env) ownCursor(c *syntax.TreeCursor) object.Object {
	if c == nil {
		return object.Nil
	}
	e.scope.track(c.Close)

	move := func(name string, fn func() bool) object.BuiltinFunction {
		return nullary(name, func() object.Object { return object.NewBool(fn()) })
	}

	o := &cursorObject{cursor: c}
	o.Module = newAdapter("tree_cursor", map[string]object.BuiltinFunction{
		"node":  nullary("node", func() object.Object { return e.wrapNode(c.Node()) }),
		"depth": nullary("depth", func() object.Object { return object.NewInt(int64(c.Depth())) }),
		"field_id": nullary("field_id", func() object.Object {
			id, ok := c.FieldID()
			if !ok {
				return object.Nil
			}
			return object.NewInt(int64(id))
		}),
		"field_name": nullary("field_name", func() object.Object {
			name, ok := c.FieldName()
			if !ok {
				return object.Nil
			}
			return object.NewString(name)
		}),
		"goto_parent":       move("goto_parent", c.GotoParent),
		"goto_first_child":  move("goto_first_child", c.GotoFirstChild),
		"goto_last_child":   move("goto_last_child", c.GotoLastChild),
		"goto_next_sibling": move("goto_next_sibling", c.GotoNextSibling),
		"goto_prev_sibling": move("goto_prev_sibling", c.GotoPrevSibling),
		"goto_first_child_for_byte": unaryInt("goto_first_child_for_byte", func(b int64) object.Object {
			if !isByteOffset(b) {
				return object.Nil
			}
			i := c.GotoFirstChildForByte(uint32(b))
			if i < 0 {
				return object.Nil
			}
			return object.NewInt(int64(i))
		}),
		"reset": func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.NewArgsError("reset", 1, len(args))
			}
			n, ok := args[0].(*nodeObject)
			if !ok {
				return object.Errorf("reset: expected node, got %s", args[0].Type())
			}
			c.Reset(n.node)
			return object.Nil
		},
		"copy": nullary("copy", func() object.Object { return e.ownCursor(c.Copy()) }),
		"close": nullary("close", func() object.Object {
			c.Close()
			return object.Nil
		}),
	})
	return o
}

func (o *cursorObject) Type() object.Type      { return cursorType }
func (o *cursorObject) Interface() interface{} { return o.cursor }

func (o *cursorObject) Inspect() string {
	n := o.cursor.Node()
	if n.IsNull() {
		return "tree_cursor(closed)"
	}
	return fmt.Sprintf("tree_cursor(%s)", n.Kind())
}
