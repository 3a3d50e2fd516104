package scanner

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"sort"
	"strconv"
	"strings"
)

var predeclared = map[string]struct{}{
	"any": {}, "bool": {}, "byte": {}, "comparable": {}, "complex64": {}, "complex128": {},
	"error": {}, "float32": {}, "float64": {}, "int": {}, "int8": {}, "int16": {}, "int32": {},
	"int64": {}, "rune": {}, "string": {}, "uint": {}, "uint8": {}, "uint16": {}, "uint32": {},
	"uint64": {}, "uintptr": {},
}

type goFile struct {
	fset       *token.FileSet
	file       *token.File
	src        []byte
	data       *ClassData
	refs       map[string]struct{}
	typeParams map[string]struct{}
}

func parseGo(path string, src []byte) (*ClassData, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if af == nil {
		return nil, err
	}
	// a partial tree still yields useful signatures

	g := &goFile{
		fset:       fset,
		file:       fset.File(af.Pos()),
		src:        src,
		data:       &ClassData{Path: path, Language: Go, Package: af.Name.Name},
		refs:       make(map[string]struct{}),
		typeParams: make(map[string]struct{}),
	}

	var b strings.Builder
	b.WriteString("package " + af.Name.Name + "\n")
	if len(af.Imports) > 0 {
		b.WriteString("\nimport (\n")
		for _, imp := range af.Imports {
			p, _ := strconv.Unquote(imp.Path.Value)
			g.data.Imports = append(g.data.Imports, p)
			b.WriteString("\t")
			if imp.Name != nil {
				b.WriteString(imp.Name.Name + " ")
			}
			b.WriteString(imp.Path.Value + "\n")
		}
		b.WriteString(")\n")
	}

	for _, decl := range af.Decls {
		var text string
		switch d := decl.(type) {
		case *ast.FuncDecl:
			text = g.funcDecl(d)
		case *ast.GenDecl:
			text = g.genDecl(d)
		}
		if text != "" {
			b.WriteString("\n" + text + "\n")
		}
	}

	g.data.Skeleton = b.String()
	g.data.Referenced = g.referenced()
	return g.data, nil
}

func (g *goFile) funcDecl(d *ast.FuncDecl) string {
	owner := ""
	if d.Recv != nil && len(d.Recv.List) > 0 {
		owner = receiverName(d.Recv.List[0].Type)
		g.collectTypeParamsFromRecv(d.Recv.List[0].Type)
		g.collectFields(d.Recv)
	}
	g.collectTypeParamList(d.Type.TypeParams)
	g.collectFields(d.Type.Params)
	g.collectFields(d.Type.Results)

	kind := KindFunction
	if owner != "" {
		kind = KindMethod
	}
	exported := d.Name.IsExported() && (owner == "" || ast.IsExported(owner))
	sig := g.funcSignature(d)
	g.addMember(d, d.Doc, d.Name.Name, owner, kind, !exported, sig)
	if !exported {
		return ""
	}
	return sig
}

// funcSignature slices the declaration up to its opening brace and falls
// back to printing the declaration without a body.
func (g *goFile) funcSignature(d *ast.FuncDecl) string {
	start := g.offset(d.Pos())
	if d.Body != nil && d.Body.Lbrace.IsValid() {
		end := g.offset(d.Body.Lbrace)
		if start >= 0 && end > start && end <= len(g.src) {
			return strings.TrimSpace(string(g.src[start:end]))
		}
	} else if d.Body == nil {
		end := g.offset(d.End())
		if start >= 0 && end > start && end <= len(g.src) {
			return strings.TrimSpace(string(g.src[start:end]))
		}
	}
	stripped := *d
	stripped.Body = nil
	stripped.Doc = nil
	return g.print(&stripped)
}

func (g *goFile) genDecl(d *ast.GenDecl) string {
	var kept []ast.Spec
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			g.collectTypeParamList(s.TypeParams)
			g.collectTypes(s.Type)
			g.data.Types = append(g.data.Types, s.Name.Name)
			doc := s.Doc
			if doc == nil && len(d.Specs) == 1 {
				doc = d.Doc
			}
			node := ast.Node(s)
			if len(d.Specs) == 1 {
				node = d
			}
			exported := s.Name.IsExported()
			g.addMember(node, doc, s.Name.Name, "", KindType, !exported, "")
			if st, ok := s.Type.(*ast.StructType); ok {
				g.structFields(s.Name.Name, st)
			}
			if exported {
				kept = append(kept, exportedOnly(s))
			}
		case *ast.ValueSpec:
			g.collectTypes(s.Type)
			if d.Tok == token.CONST {
				kept = append(kept, blankUnexported(s))
				continue
			}
			var names []*ast.Ident
			for _, n := range s.Names {
				if n.IsExported() {
					names = append(names, n)
				}
			}
			if len(names) > 0 {
				// var initializers are dropped, only names and types stay
				kept = append(kept, &ast.ValueSpec{Names: names, Type: s.Type})
			}
		}
	}
	if d.Tok == token.CONST && !exportsConst(kept) {
		return ""
	}
	if len(kept) == 0 || d.Tok == token.IMPORT {
		return ""
	}
	out := &ast.GenDecl{Tok: d.Tok, Specs: kept}
	if len(kept) > 1 {
		out.Lparen, out.Rparen = d.Lparen, d.Rparen
	}
	return g.print(out)
}

// blankUnexported copies a const spec with unexported names replaced by _.
// Every spec of a block is kept with its values so iota and implicit
// repetition mean the same as in the source.
func blankUnexported(s *ast.ValueSpec) *ast.ValueSpec {
	names := make([]*ast.Ident, len(s.Names))
	for i, n := range s.Names {
		if n.IsExported() {
			names[i] = n
		} else {
			names[i] = &ast.Ident{NamePos: n.NamePos, Name: "_"}
		}
	}
	return &ast.ValueSpec{Names: names, Type: s.Type, Values: s.Values}
}

func exportsConst(specs []ast.Spec) bool {
	for _, spec := range specs {
		if vs, ok := spec.(*ast.ValueSpec); ok {
			for _, n := range vs.Names {
				if n.IsExported() {
					return true
				}
			}
		}
	}
	return false
}

func (g *goFile) structFields(owner string, st *ast.StructType) {
	if st.Fields == nil {
		return
	}
	for _, f := range st.Fields.List {
		for _, n := range f.Names {
			g.addMember(f, f.Doc, n.Name, owner, KindField, !n.IsExported(), "")
		}
	}
}

// exportedOnly returns a copy of a type spec whose struct fields and
// interface methods are limited to exported names.
func exportedOnly(s *ast.TypeSpec) *ast.TypeSpec {
	cp := *s
	cp.Doc = nil
	cp.Comment = nil
	switch t := s.Type.(type) {
	case *ast.StructType:
		cp.Type = &ast.StructType{Fields: filterFields(t.Fields)}
	case *ast.InterfaceType:
		cp.Type = &ast.InterfaceType{Methods: filterFields(t.Methods)}
	}
	return &cp
}

func filterFields(fl *ast.FieldList) *ast.FieldList {
	if fl == nil {
		return &ast.FieldList{}
	}
	out := &ast.FieldList{Opening: fl.Opening, Closing: fl.Closing}
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			// embedded types are kept when exported
			if ast.IsExported(receiverName(f.Type)) {
				out.List = append(out.List, &ast.Field{Type: f.Type, Tag: f.Tag})
			}
			continue
		}
		var names []*ast.Ident
		for _, n := range f.Names {
			if n.IsExported() {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			out.List = append(out.List, &ast.Field{Names: names, Type: f.Type, Tag: f.Tag})
		}
	}
	return out
}

func (g *goFile) print(node ast.Node) string {
	var buf bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, g.fset, node); err != nil {
		return ""
	}
	return buf.String()
}

func (g *goFile) addMember(node ast.Node, doc *ast.CommentGroup, name, owner string, kind MemberKind, private bool, sig string) {
	start, end := g.offset(node.Pos()), g.offset(node.End())
	m := Member{
		Name:      name,
		Owner:     owner,
		Kind:      kind,
		Signature: collapse(sig),
		Start:     start,
		End:       end,
		DocStart:  -1,
		DocEnd:    -1,
		Line:      g.fset.Position(node.Pos()).Line,
		EndLine:   g.fset.Position(node.End()).Line,
		Private:   private,
	}
	if doc != nil {
		m.DocStart = g.offset(doc.Pos())
		m.DocEnd = g.offset(doc.End())
	}
	g.data.Members = append(g.data.Members, m)
}

func (g *goFile) offset(p token.Pos) int {
	if !p.IsValid() || g.file == nil {
		return -1
	}
	return g.file.Offset(p)
}

func (g *goFile) collectFields(fl *ast.FieldList) {
	if fl == nil {
		return
	}
	for _, f := range fl.List {
		g.collectTypes(f.Type)
	}
}

func (g *goFile) collectTypeParamList(fl *ast.FieldList) {
	if fl == nil {
		return
	}
	for _, f := range fl.List {
		for _, n := range f.Names {
			g.typeParams[n.Name] = struct{}{}
		}
		// constraints reference real types
		g.collectTypes(f.Type)
	}
}

// collectTypeParamsFromRecv records the type parameter names of a generic
// receiver such as (s *Set[T]).
func (g *goFile) collectTypeParamsFromRecv(expr ast.Expr) {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.IndexExpr:
		if id, ok := t.Index.(*ast.Ident); ok {
			g.typeParams[id.Name] = struct{}{}
		}
	case *ast.IndexListExpr:
		for _, idx := range t.Indices {
			if id, ok := idx.(*ast.Ident); ok {
				g.typeParams[id.Name] = struct{}{}
			}
		}
	}
}

// collectTypes records the named types used by a type expression.
func (g *goFile) collectTypes(expr ast.Expr) {
	switch t := expr.(type) {
	case nil:
	case *ast.Ident:
		if _, ok := predeclared[t.Name]; !ok {
			g.refs[t.Name] = struct{}{}
		}
	case *ast.SelectorExpr:
		if pkg, ok := t.X.(*ast.Ident); ok {
			g.refs[pkg.Name+"."+t.Sel.Name] = struct{}{}
		}
	case *ast.StarExpr:
		g.collectTypes(t.X)
	case *ast.ParenExpr:
		g.collectTypes(t.X)
	case *ast.ArrayType:
		g.collectTypes(t.Elt)
	case *ast.MapType:
		g.collectTypes(t.Key)
		g.collectTypes(t.Value)
	case *ast.ChanType:
		g.collectTypes(t.Value)
	case *ast.Ellipsis:
		g.collectTypes(t.Elt)
	case *ast.FuncType:
		g.collectTypeParamList(t.TypeParams)
		g.collectFields(t.Params)
		g.collectFields(t.Results)
	case *ast.StructType:
		g.collectFields(t.Fields)
	case *ast.InterfaceType:
		g.collectFields(t.Methods)
	case *ast.IndexExpr:
		g.collectTypes(t.X)
		g.collectTypes(t.Index)
	case *ast.IndexListExpr:
		g.collectTypes(t.X)
		for _, idx := range t.Indices {
			g.collectTypes(idx)
		}
	case *ast.BinaryExpr:
		// constraint unions like ~int | MyInt
		g.collectTypes(t.X)
		g.collectTypes(t.Y)
	case *ast.UnaryExpr:
		g.collectTypes(t.X)
	}
}

func (g *goFile) referenced() []string {
	out := make([]string, 0, len(g.refs))
	for name := range g.refs {
		if _, ok := g.typeParams[name]; ok {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// receiverName returns the base type name of a receiver or embedded field.
func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.Ident:
		return t.Name
	}
	return ""
}
