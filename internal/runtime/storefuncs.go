package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/store"
)

// Store bridge functions. Risor scripts cannot construct Go struct
// pointers, so results come back as lists of maps with primitive values.

// makeSaveTreeFn creates "save_tree", which stores tree as the current
// snapshot of path.
//
// save_tree(path, tree) → file map
func makeSaveTreeFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("save_tree", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("save_tree", 2, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("save_tree: path %v", err)
		}
		t, ok := args[1].(*treeObject)
		if !ok {
			return object.Errorf("save_tree: expected tree, got %s", args[1].Type())
		}
		if t.tree.Closed() {
			return object.Errorf("save_tree: tree is closed")
		}

		f, saveErr := s.ReplaceSnapshot(path, t.tree)
		if saveErr != nil {
			return object.Errorf("save_tree: %v", saveErr)
		}
		return fileToMap(f)
	})
}

// makeKindCountsFn creates "kind_counts".
//
// kind_counts() → [{kind, is_named, count}] over every snapshot
// kind_counts(path) → the same, restricted to one file
func makeKindCountsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("kind_counts", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("kind_counts: expected at most 1 argument, got %d", len(args))
		}

		var ids []int64
		if len(args) == 1 {
			path, err := toString(args[0])
			if err != nil {
				return object.Errorf("kind_counts: path %v", err)
			}
			f, err := s.FileByPath(path)
			if err != nil {
				return object.Errorf("kind_counts: %v", err)
			}
			if f == nil {
				return object.NewList([]object.Object{})
			}
			ids = append(ids, f.ID)
		}

		counts, err := s.KindCounts(ids...)
		if err != nil {
			return object.Errorf("kind_counts: %v", err)
		}
		results := make([]object.Object, 0, len(counts))
		for _, kc := range counts {
			results = append(results, object.NewMap(map[string]object.Object{
				"kind":     object.NewString(kc.Kind),
				"is_named": object.NewBool(kc.IsNamed),
				"count":    object.NewInt(int64(kc.Count)),
			}))
		}
		return object.NewList(results)
	})
}

// makeFilesFn creates "files".
//
// files() → [file map]
// files(language) → files of one language
func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("files: expected at most 1 argument, got %d", len(args))
		}

		var files []*store.File
		var err error
		if len(args) == 1 {
			lang, convErr := toString(args[0])
			if convErr != nil {
				return object.Errorf("files: language %v", convErr)
			}
			files, err = s.FilesByLanguage(lang)
		} else {
			files, err = s.Files()
		}
		if err != nil {
			return object.Errorf("files: %v", err)
		}

		results := make([]object.Object, 0, len(files))
		for _, f := range files {
			results = append(results, fileToMap(f))
		}
		return object.NewList(results)
	})
}

// makeNodeAtFn creates "node_at", which looks up the deepest stored node
// containing a position.
//
// node_at(path, line, col) → node row map or nil
func makeNodeAtFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("node_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("node_at", 3, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("node_at: path %v", err)
		}
		line, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("node_at: line %v", err)
		}
		col, err := toInt64(args[2])
		if err != nil {
			return object.Errorf("node_at: col %v", err)
		}

		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("node_at: %v", err)
		}
		if f == nil {
			return object.Nil
		}
		row, err := s.NodeAt(f.ID, int(line), int(col))
		if err != nil {
			return object.Errorf("node_at: %v", err)
		}
		if row == nil {
			return object.Nil
		}
		return nodeRowToMap(row)
	})
}

// makeDBQueryFn creates a db_query bridge that executes arbitrary read-only SQL.
// Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, arg.Inspect())
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

func fileToMap(f *store.File) object.Object {
	return object.NewMap(map[string]object.Object{
		"id":         object.NewInt(f.ID),
		"path":       object.NewString(f.Path),
		"language":   object.NewString(f.Language),
		"hash":       object.NewString(f.Hash),
		"byte_size":  object.NewInt(int64(f.ByteSize)),
		"node_count": object.NewInt(int64(f.NodeCount)),
		"has_error":  object.NewBool(f.HasError),
	})
}

func nodeRowToMap(n *store.NodeRow) object.Object {
	m := map[string]object.Object{
		"id":         object.NewInt(n.ID),
		"file_id":    object.NewInt(n.FileID),
		"ordinal":    object.NewInt(int64(n.Ordinal)),
		"parent":     object.NewInt(int64(n.Parent)),
		"depth":      object.NewInt(int64(n.Depth)),
		"kind":       object.NewString(n.Kind),
		"kind_id":    object.NewInt(int64(n.KindID)),
		"is_named":   object.NewBool(n.IsNamed),
		"is_missing": object.NewBool(n.IsMissing),
		"is_extra":   object.NewBool(n.IsExtra),
		"is_error":   object.NewBool(n.IsError),
		"start_byte": object.NewInt(int64(n.StartByte)),
		"end_byte":   object.NewInt(int64(n.EndByte)),
		"start_line": object.NewInt(int64(n.StartLine)),
		"start_col":  object.NewInt(int64(n.StartCol)),
		"end_line":   object.NewInt(int64(n.EndLine)),
		"end_col":    object.NewInt(int64(n.EndCol)),
		"field":      object.Nil,
	}
	if n.Field != "" {
		m["field"] = object.NewString(n.Field)
	}
	return object.NewMap(m)
}

// --- Argument helpers ---

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// toBytes accepts a string or byte_slice.
func toBytes(obj object.Object) ([]byte, error) {
	switch v := obj.(type) {
	case *object.String:
		return []byte(v.Value()), nil
	case *object.ByteSlice:
		return v.Value(), nil
	}
	return nil, fmt.Errorf("expected string or byte_slice, got %s", obj.Type())
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
