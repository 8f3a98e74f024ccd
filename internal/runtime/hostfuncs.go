package runtime

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/syntax"
)

// makeParseFn creates the "parse" host function.
//
// parse(path, language) → tree
//
// language may be omitted, in which case it is detected from the path.
func makeParseFn(e *env) *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("parse: expected 1 or 2 arguments, got %d", len(args))
		}

		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse: path %v", err)
		}

		var lang *syntax.Language
		if len(args) == 2 {
			var errObj object.Object
			if lang, errObj = e.resolveLanguage("parse", args[1]); errObj != nil {
				return errObj
			}
		} else {
			var ok bool
			if lang, ok = e.registry.ForFile(path); !ok {
				return object.Errorf("parse: no language for %s", path)
			}
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse: reading %s: %v", path, err)
		}
		return parseSource(ctx, e, src, lang)
	})
}

// makeParseSrcFn creates "parse_src", which accepts source text directly.
//
// parse_src(source, language) → tree
func makeParseSrcFn(e *env) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}

		src, err := toBytes(args[0])
		if err != nil {
			return object.Errorf("parse_src: source %v", err)
		}
		lang, errObj := e.resolveLanguage("parse_src", args[1])
		if errObj != nil {
			return errObj
		}
		return parseSource(ctx, e, src, lang)
	})
}

// parseSource is the shared implementation for parse and parse_src. The
// parser is discarded after one use; the tree is owned by the scope.
func parseSource(ctx context.Context, e *env, src []byte, lang *syntax.Language) object.Object {
	p := syntax.NewParser(e.parserOpts...)
	defer p.Close()

	if err := p.SetLanguage(lang); err != nil {
		return object.NewError(err)
	}
	tree, err := p.Parse(ctx, src, nil)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	return e.ownTree(tree)
}

// makeLanguageFn creates "language".
//
// language(name) → language or nil
func makeLanguageFn(e *env) *object.Builtin {
	return object.NewBuiltin("language", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("language", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("language: %v", err)
		}
		l, ok := e.registry.Lookup(name)
		if !ok {
			return object.Nil
		}
		return e.wrapLanguage(l)
	})
}

// makeLanguagesMap builds the "languages" global: name → language.
func makeLanguagesMap(e *env) *object.Map {
	items := make(map[string]object.Object)
	for name, l := range e.registry.Languages() {
		items[name] = e.wrapLanguage(l)
	}
	return object.NewMap(items)
}

// makeParserFn creates the "Parser" constructor.
//
// Parser() → parser
// Parser(language) → parser with language set
func makeParserFn(e *env) *object.Builtin {
	return object.NewBuiltin("Parser", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("Parser: expected at most 1 argument, got %d", len(args))
		}
		p := e.newParser()
		if len(args) == 1 {
			lang, errObj := e.resolveLanguage("Parser", args[0])
			if errObj != nil {
				return errObj
			}
			if err := p.parser.SetLanguage(lang); err != nil {
				return object.NewError(err)
			}
		}
		return p
	})
}

// makeNodeTextFn creates "node_text".
//
// node_text(node) → string
func makeNodeTextFn() *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		n, ok := args[0].(*nodeObject)
		if !ok {
			return object.Errorf("node_text: expected node, got %s", args[0].Type())
		}
		return object.NewString(n.node.Text())
	})
}

// makeNodeChildFn creates "node_child", a shorthand for
// node.child_by_field_name that tolerates a nil node.
//
// node_child(node, fieldName) → node or nil
func makeNodeChildFn(e *env) *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		if args[0] == object.Nil {
			return object.Nil
		}
		n, ok := args[0].(*nodeObject)
		if !ok {
			return object.Errorf("node_child: expected node, got %s", args[0].Type())
		}
		field, err := toString(args[1])
		if err != nil {
			return object.Errorf("node_child: field %v", err)
		}
		return e.wrapNode(n.node.ChildByFieldName(field))
	})
}

// makeLogModule builds the "log" global. Each function joins its arguments
// with spaces and forwards them to the runtime's logger.
func makeLogModule(logger *slog.Logger, label string) *object.Module {
	logFn := func(name string, level slog.Level) *object.Builtin {
		return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
			parts := make([]string, len(args))
			for i, a := range args {
				if s, ok := a.(*object.String); ok {
					parts[i] = s.Value()
				} else {
					parts[i] = a.Inspect()
				}
			}
			logger.Log(ctx, level, strings.Join(parts, " "), "script", label)
			return object.Nil
		})
	}
	return object.NewBuiltinsModule("log", map[string]object.Object{
		"debug": logFn("debug", slog.LevelDebug),
		"info":  logFn("info", slog.LevelInfo),
		"warn":  logFn("warn", slog.LevelWarn),
		"error": logFn("error", slog.LevelError),
	})
}
