package extract

import (
	"context"
	"path/filepath"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/skelly-dev/ripple/internal/facts"
)

// Extensions lists the source files the extractor understands.
var Extensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// Supported reports whether path has an extension the extractor parses.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range Extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// sourceParser owns one tree-sitter parser per grammar. Parsers are not safe
// for concurrent use, so every worker creates its own.
type sourceParser struct {
	ts  *sitter.Parser
	tsx *sitter.Parser
	js  *sitter.Parser
}

func newSourceParser() *sourceParser {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())

	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())

	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())

	return &sourceParser{ts: ts, tsx: tsxParser, js: js}
}

func (p *sourceParser) close() {
	p.ts.Close()
	p.tsx.Close()
	p.js.Close()
}

func (p *sourceParser) parserFor(moduleID string) *sitter.Parser {
	switch strings.ToLower(filepath.Ext(moduleID)) {
	case ".ts":
		return p.ts
	case ".tsx":
		return p.tsx
	default:
		return p.js
	}
}

// parse extracts the facts for one module. The returned bool reports whether
// tree-sitter had to recover from syntax errors.
func (p *sourceParser) parse(ctx context.Context, moduleID string, content []byte) (facts.ModuleFacts, bool, error) {
	tree, err := p.parserFor(moduleID).ParseCtx(ctx, nil, content)
	if err != nil {
		return facts.ModuleFacts{}, false, err
	}
	defer tree.Close()

	root := tree.RootNode()
	w := newModuleWalker(content)
	w.collectDependencies(root)
	w.extractSymbols(root, "")
	return w.record(moduleID), root.HasError(), nil
}

type moduleWalker struct {
	content []byte

	deps     []string
	seenDeps map[string]bool

	// local binding -> exported name, for `import { a as b }`
	aliases    map[string]string
	namespaces map[string]bool

	symbols    []string
	calls      map[string][]string
	locations  map[string]facts.Location
	complexity map[string]int
}

func newModuleWalker(content []byte) *moduleWalker {
	return &moduleWalker{
		content:    content,
		seenDeps:   make(map[string]bool),
		aliases:    make(map[string]string),
		namespaces: make(map[string]bool),
		calls:      make(map[string][]string),
		locations:  make(map[string]facts.Location),
		complexity: make(map[string]int),
	}
}

func (w *moduleWalker) record(moduleID string) facts.ModuleFacts {
	return facts.ModuleFacts{
		ModuleID:             moduleID,
		DeclaredDependencies: w.deps,
		DeclaredSymbols:      w.symbols,
		SymbolCallEdges:      w.calls,
		SymbolLocation:       w.locations,
		SymbolComplexity:     w.complexity,
	}
}

func (w *moduleWalker) addDependency(spec string) {
	spec = strings.TrimSpace(spec)
	if spec == "" || w.seenDeps[spec] {
		return
	}
	w.seenDeps[spec] = true
	w.deps = append(w.deps, spec)
}

// collectDependencies records import, re-export, require() and dynamic
// import() specifiers in source order.
func (w *moduleWalker) collectDependencies(node *sitter.Node) {
	switch node.Type() {
	case "import_statement":
		if spec, ok := w.sourceString(node); ok {
			w.addDependency(spec)
			w.bindImports(node.Content(w.content))
		}
		return
	case "export_statement":
		if spec, ok := w.sourceString(node); ok {
			w.addDependency(spec)
		}
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn != nil && (fn.Type() == "import" || (fn.Type() == "identifier" && fn.Content(w.content) == "require")) {
			if spec, ok := w.firstStringArgument(node); ok {
				w.addDependency(spec)
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.collectDependencies(node.Child(i))
	}
}

// sourceString returns the module specifier of an import or export statement.
func (w *moduleWalker) sourceString(node *sitter.Node) (string, bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "string" {
			return unquote(child.Content(w.content)), true
		}
	}
	return "", false
}

func (w *moduleWalker) firstStringArgument(call *sitter.Node) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return "", false
	}
	return unquote(first.Content(w.content)), true
}

func (w *moduleWalker) bindImports(raw string) {
	named, namespaces := parseImportBindings(raw)
	for local, exported := range named {
		w.aliases[local] = exported
	}
	for _, ns := range namespaces {
		w.namespaces[ns] = true
	}
}

func (w *moduleWalker) extractSymbols(node *sitter.Node, className string) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			w.addSymbol(name.Content(w.content), node, node.ChildByFieldName("body"), className)
		}
		return

	case "class_declaration", "abstract_class_declaration", "class":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := nameNode.Content(w.content)
		w.addSymbol(name, node, nil, name)
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				w.extractMember(body.Child(i), name)
			}
		}
		return

	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			decl := node.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			nameNode := decl.ChildByFieldName("name")
			value := decl.ChildByFieldName("value")
			if nameNode == nil || value == nil || !isFunctionValue(value) {
				continue
			}
			w.addSymbol(nameNode.Content(w.content), decl, value.ChildByFieldName("body"), className)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.extractSymbols(node.Child(i), className)
	}
}

func (w *moduleWalker) extractMember(node *sitter.Node, className string) {
	switch node.Type() {
	case "method_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			w.addSymbol(className+"."+name.Content(w.content), node, node.ChildByFieldName("body"), className)
		}
	case "public_field_definition", "field_definition":
		name := node.ChildByFieldName("name")
		if name == nil {
			name = node.ChildByFieldName("property")
		}
		value := node.ChildByFieldName("value")
		if name != nil && value != nil && isFunctionValue(value) {
			w.addSymbol(className+"."+name.Content(w.content), node, value.ChildByFieldName("body"), className)
		}
	}
}

func isFunctionValue(node *sitter.Node) bool {
	switch node.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// addSymbol declares name once; repeated declarations (overload bodies,
// redeclared vars) merge their calls into the first.
func (w *moduleWalker) addSymbol(name string, decl, body *sitter.Node, className string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, exists := w.locations[name]; !exists {
		start := decl.StartPoint()
		w.symbols = append(w.symbols, name)
		w.locations[name] = facts.Location{Line: int(start.Row) + 1, Column: int(start.Column) + 1}
		w.complexity[name] = 1
	}
	if body == nil {
		return
	}
	w.complexity[name] += countBranches(body, w.content)

	seen := make(map[string]bool, len(w.calls[name]))
	for _, callee := range w.calls[name] {
		seen[callee] = true
	}
	w.collectCalls(body, className, func(callee string) {
		if callee == "" || seen[callee] {
			return
		}
		seen[callee] = true
		w.calls[name] = append(w.calls[name], callee)
	})
}

func (w *moduleWalker) collectCalls(node *sitter.Node, className string, emit func(string)) {
	switch node.Type() {
	case "call_expression":
		emit(w.calleeName(node.ChildByFieldName("function"), className))
	case "new_expression":
		emit(w.calleeName(node.ChildByFieldName("constructor"), className))
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		w.collectCalls(node.Child(i), className, emit)
	}
}

// calleeName maps a call target onto the name a declaring module would use:
// plain and aliased identifiers, this.method() inside a class, ns.fn() on a
// namespace import and Type.staticMethod(). Untyped receivers are skipped.
func (w *moduleWalker) calleeName(fn *sitter.Node, className string) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		name := fn.Content(w.content)
		if name == "require" {
			return ""
		}
		if exported, ok := w.aliases[name]; ok {
			return exported
		}
		return name
	case "member_expression":
		object := fn.ChildByFieldName("object")
		property := fn.ChildByFieldName("property")
		if object == nil || property == nil {
			return ""
		}
		prop := property.Content(w.content)
		switch object.Type() {
		case "this":
			if className != "" {
				return className + "." + prop
			}
		case "identifier":
			obj := object.Content(w.content)
			if w.namespaces[obj] {
				return prop
			}
			if startsUpper(obj) {
				if exported, ok := w.aliases[obj]; ok {
					obj = exported
				}
				return obj + "." + prop
			}
		}
	case "parenthesized_expression":
		if inner := fn.NamedChild(0); inner != nil {
			return w.calleeName(inner, className)
		}
	}
	return ""
}

var branchNodes = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

// countBranches counts decision points below node, which makes
// 1+countBranches the cyclomatic complexity of a body.
func countBranches(node *sitter.Node, content []byte) int {
	count := 0
	if branchNodes[node.Type()] {
		count++
	}
	if node.Type() == "binary_expression" {
		if op := node.ChildByFieldName("operator"); op != nil {
			switch op.Content(content) {
			case "&&", "||", "??":
				count++
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countBranches(node.Child(i), content)
	}
	return count
}

func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '"' || first == '\'' || first == '`') && last == first {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
