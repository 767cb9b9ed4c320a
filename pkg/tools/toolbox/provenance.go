package toolbox

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"unicode"
)

type funcInfo struct {
	symbol string // fully qualified runtime symbol
	name   string // snake_case tool name, empty for anonymous functions
	source string // file:line
	doc    string
}

var anonymousFunc = regexp.MustCompile(`^func\d+$`)

func describe(fn any) funcInfo {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return funcInfo{}
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return funcInfo{}
	}

	info := funcInfo{symbol: f.Name()}
	ident := identifier(f.Name())

	file, line := f.FileLine(f.Entry())
	if file != "" {
		info.source = fmt.Sprintf("%s:%d", file, line)
	}

	if ident == "" || anonymousFunc.MatchString(ident) {
		return info
	}

	info.name = snakeCase(ident)
	info.doc = docs.lookup(file, ident, line)

	return info
}

// identifier reduces a runtime symbol such as
// "example.com/pkg.(*Shop).Order-fm" to its Go identifier "Order".
func identifier(symbol string) string {
	symbol = strings.TrimSuffix(symbol, "-fm")
	if i := strings.LastIndex(symbol, "/"); i >= 0 {
		symbol = symbol[i+1:]
	}
	if i := strings.Index(symbol, "["); i >= 0 {
		symbol = symbol[:i]
	}
	if i := strings.LastIndex(symbol, "."); i >= 0 {
		symbol = symbol[i+1:]
	}

	return symbol
}

func snakeCase(s string) string {
	runes := []rune(s)

	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// docCache parses each source file at most once and keeps the doc comments of
// its function declarations.
type docCache struct {
	mu    sync.Mutex
	files map[string][]funcDoc
}

type funcDoc struct {
	ident      string
	start, end int
	doc        string
}

var docs = &docCache{files: map[string][]funcDoc{}}

func (c *docCache) lookup(file, ident string, line int) string {
	if file == "" {
		return ""
	}

	c.mu.Lock()
	entries, ok := c.files[file]
	if !ok {
		entries = parseDocs(file)
		c.files[file] = entries
	}
	c.mu.Unlock()

	var doc string
	for _, e := range entries {
		if e.ident != ident {
			continue
		}
		if line >= e.start && line <= e.end {
			return e.doc
		}
		if doc == "" {
			doc = e.doc
		}
	}

	return doc
}

func parseDocs(file string) []funcDoc {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, file, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil
	}

	var out []funcDoc
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}
		out = append(out, funcDoc{
			ident: fd.Name.Name,
			start: fset.Position(fd.Pos()).Line,
			end:   fset.Position(fd.End()).Line,
			doc:   strings.TrimSpace(fd.Doc.Text()),
		})
	}

	return out
}
