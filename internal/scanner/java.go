package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

const indentUnit = "    "

var javaTypeDecls = map[string]string{
	"class_declaration":           "class",
	"interface_declaration":       "interface",
	"enum_declaration":            "enum",
	"record_declaration":          "record",
	"annotation_type_declaration": "@interface",
}

// javaFile carries the state of one Java skeleton extraction.
type javaFile struct {
	src        []byte
	data       *ClassData
	skel       strings.Builder
	refs       map[string]struct{}
	typeParams map[string]struct{}
}

func parseJava(path string, src []byte) (*ClassData, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	f := &javaFile{
		src:        src,
		data:       &ClassData{Path: path, Language: Java},
		refs:       make(map[string]struct{}),
		typeParams: make(map[string]struct{}),
	}
	root := tree.RootNode()

	var header []string
	var imports []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			f.data.Package = javaDeclaredName(n, src)
			header = append(header, "package "+f.data.Package+";")
		case "import_declaration":
			text := collapse(n.Content(src))
			imports = append(imports, text)
			name := strings.TrimSuffix(strings.TrimPrefix(text, "import "), ";")
			f.data.Imports = append(f.data.Imports, strings.TrimSpace(name))
		}
	}
	if len(header) > 0 {
		f.skel.WriteString(header[0])
		f.skel.WriteString("\n\n")
	}
	if len(imports) > 0 {
		f.skel.WriteString(strings.Join(imports, "\n"))
		f.skel.WriteString("\n\n")
	}

	first := true
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if _, ok := javaTypeDecls[n.Type()]; !ok {
			continue
		}
		if !first {
			f.skel.WriteString("\n")
		}
		first = false
		f.typeDecl(n, "", "")
	}

	f.data.Skeleton = strings.TrimRight(f.skel.String(), "\n") + "\n"
	f.data.Referenced = f.referenced()
	return f.data, nil
}

// javaDeclaredName returns the dotted name of a package declaration.
func javaDeclaredName(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return c.Content(src)
		}
	}
	return strings.TrimSuffix(strings.TrimPrefix(collapse(n.Content(src)), "package "), ";")
}

// typeDecl writes a type and its non-private members to the skeleton.
func (f *javaFile) typeDecl(n *sitter.Node, owner, indent string) {
	name := f.text(n.ChildByFieldName("name"))
	private := javaIsPrivate(n)
	f.addMember(n, name, owner, KindType, private, "")
	f.data.Types = append(f.data.Types, name)

	f.collectTypeParams(n.ChildByFieldName("type_parameters"))
	for _, field := range []string{"superclass", "interfaces", "permits"} {
		f.collectTypes(n.ChildByFieldName(field))
	}
	f.collectTypes(javaChildOfType(n, "extends_interfaces"))
	// record components are both fields and constructor parameters
	f.collectTypes(n.ChildByFieldName("parameters"))

	body := n.ChildByFieldName("body")
	if !private {
		f.skel.WriteString(indentLines(f.header(n, body), indent))
		f.skel.WriteString(" {\n")
	}

	qualified := name
	if owner != "" {
		qualified = owner + "." + name
	}
	if body != nil {
		f.body(body, qualified, indent+indentUnit, private)
	}
	if !private {
		f.skel.WriteString(indent)
		f.skel.WriteString("}\n")
	}
}

// body walks the members of a class, interface, enum or annotation body.
// Members of a private type are recorded but never written.
func (f *javaFile) body(body *sitter.Node, owner, indent string, hidden bool) {
	var constants []string
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "enum_constant":
			constants = append(constants, f.text(c.ChildByFieldName("name")))
			f.addMember(c, f.text(c.ChildByFieldName("name")), owner, KindField, false, "")
		case "enum_body_declarations":
			if len(constants) > 0 && !hidden {
				f.skel.WriteString(indent + strings.Join(constants, ", ") + ";\n")
				constants = nil
			}
			f.body(c, owner, indent, hidden)
		}
	}
	if len(constants) > 0 && !hidden {
		f.skel.WriteString(indent + strings.Join(constants, ", ") + ";\n")
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if _, ok := javaTypeDecls[c.Type()]; ok {
			if hidden {
				// still record nested members for lookup
				f.typeDeclHidden(c, owner)
				continue
			}
			f.typeDecl(c, owner, indent)
			continue
		}
		switch c.Type() {
		case "method_declaration", "annotation_type_element_declaration":
			f.method(c, owner, indent, hidden, KindMethod)
		case "constructor_declaration", "compact_constructor_declaration":
			f.method(c, owner, indent, hidden, KindConstructor)
		case "field_declaration", "constant_declaration":
			f.field(c, owner, indent, hidden)
		}
	}
}

func (f *javaFile) typeDeclHidden(n *sitter.Node, owner string) {
	name := f.text(n.ChildByFieldName("name"))
	f.addMember(n, name, owner, KindType, true, "")
	f.data.Types = append(f.data.Types, name)
	if body := n.ChildByFieldName("body"); body != nil {
		f.body(body, owner+"."+name, "", true)
	}
}

func (f *javaFile) method(n *sitter.Node, owner, indent string, hidden bool, kind MemberKind) {
	name := f.text(n.ChildByFieldName("name"))
	private := hidden || javaIsPrivate(n)

	f.collectTypeParams(n.ChildByFieldName("type_parameters"))
	f.collectTypes(n.ChildByFieldName("type"))
	f.collectTypes(n.ChildByFieldName("parameters"))
	f.collectTypes(javaChildOfType(n, "throws"))

	body := n.ChildByFieldName("body")
	sig := f.header(n, body)
	if !strings.HasSuffix(sig, ";") {
		sig += ";"
	}
	f.addMember(n, name, owner, kind, private, collapse(sig))
	if !private {
		f.skel.WriteString(indentLines(sig, indent))
		f.skel.WriteString("\n")
	}
}

func (f *javaFile) field(n *sitter.Node, owner, indent string, hidden bool) {
	private := hidden || javaIsPrivate(n)
	typ := n.ChildByFieldName("type")
	f.collectTypes(typ)

	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" {
			continue
		}
		name := f.text(c.ChildByFieldName("name"))
		if dims := c.ChildByFieldName("dimensions"); dims != nil {
			name += f.text(dims)
		}
		names = append(names, name)
	}

	var sig string
	if typ != nil && !n.HasError() && len(names) > 0 && int(typ.EndByte()) <= len(f.src) {
		// declaration up to the type, without initializers
		sig = strings.TrimSpace(string(f.src[n.StartByte():typ.EndByte()])) + " " + strings.Join(names, ", ") + ";"
	} else {
		sig = f.fallbackHeader(n, nil)
		if !strings.HasSuffix(sig, ";") {
			sig += ";"
		}
	}
	for _, name := range names {
		f.addMember(n, name, owner, KindField, private, collapse(sig))
	}
	if !private {
		f.skel.WriteString(indentLines(sig, indent))
		f.skel.WriteString("\n")
	}
}

// header returns the declaration text preceding body, sliced from the
// source so annotations, extends and implements keep their spelling.
func (f *javaFile) header(n, body *sitter.Node) string {
	start := int(n.StartByte())
	end := int(n.EndByte())
	if body != nil {
		end = int(body.StartByte())
	}
	if n.HasError() || start < 0 || end > len(f.src) || start >= end {
		return f.fallbackHeader(n, body)
	}
	return strings.TrimSpace(string(f.src[start:end]))
}

// fallbackHeader rebuilds a declaration header from its child nodes when the
// source positions cannot be trusted.
func (f *javaFile) fallbackHeader(n, body *sitter.Node) string {
	var parts []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if body != nil && c.StartByte() == body.StartByte() && c.Type() == body.Type() {
			break
		}
		switch c.Type() {
		case "block", "constructor_body", "class_body", "interface_body", "enum_body", "annotation_type_body", "ERROR":
			continue
		case "variable_declarator":
			// drop initializers
			text := f.text(c.ChildByFieldName("name"))
			if dims := c.ChildByFieldName("dimensions"); dims != nil {
				text += f.text(dims)
			}
			parts = append(parts, text)
			continue
		case "=":
			continue
		}
		if t := strings.TrimSpace(c.Content(f.src)); t != "" {
			parts = append(parts, t)
		}
	}
	out := strings.Join(parts, " ")
	out = strings.ReplaceAll(out, " ,", ",")
	out = strings.ReplaceAll(out, " ;", ";")
	return strings.ReplaceAll(out, " (", "(")
}

func (f *javaFile) addMember(n *sitter.Node, name, owner string, kind MemberKind, private bool, sig string) {
	m := Member{
		Name:      name,
		Owner:     owner,
		Kind:      kind,
		Signature: sig,
		Start:     int(n.StartByte()),
		End:       int(n.EndByte()),
		DocStart:  -1,
		DocEnd:    -1,
		Line:      int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Private:   private,
	}
	if doc := n.PrevNamedSibling(); doc != nil && javaIsComment(doc) {
		text := doc.Content(f.src)
		// only a javadoc directly above the declaration belongs to it
		if strings.HasPrefix(text, "/**") && int(n.StartPoint().Row)-int(doc.EndPoint().Row) <= 1 {
			m.DocStart = int(doc.StartByte())
			m.DocEnd = int(doc.EndByte())
		}
	}
	f.data.Members = append(f.data.Members, m)
}

// collectTypes records every type name used under n. Annotations,
// declarator names and bodies are skipped.
func (f *javaFile) collectTypes(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "type_identifier":
		f.refs[n.Content(f.src)] = struct{}{}
		return
	case "scoped_type_identifier":
		if javaChildOfType(n, "generic_type") == nil {
			f.refs[collapse(n.Content(f.src))] = struct{}{}
			return
		}
	case "wildcard":
		// ? extends T and ? super T collect T, a bare ? collects nothing
	case "array_type":
		f.collectTypes(n.ChildByFieldName("element"))
		return
	case "type_parameters":
		f.collectTypeParams(n)
		return
	case "modifiers", "annotation", "marker_annotation", "variable_declarator", "identifier",
		"block", "constructor_body", "class_body", "interface_body", "enum_body",
		"integral_type", "floating_point_type", "boolean_type", "void_type":
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		f.collectTypes(n.NamedChild(i))
	}
}

// collectTypeParams remembers declared type variables so they are not
// reported as referenced types, and collects their bounds.
func (f *javaFile) collectTypeParams(n *sitter.Node) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		if p.Type() != "type_parameter" {
			continue
		}
		for j := 0; j < int(p.NamedChildCount()); j++ {
			c := p.NamedChild(j)
			switch c.Type() {
			case "type_identifier", "identifier":
				f.typeParams[c.Content(f.src)] = struct{}{}
			case "type_bound":
				f.collectTypes(c)
			}
		}
	}
}

func (f *javaFile) referenced() []string {
	out := make([]string, 0, len(f.refs))
	for name := range f.refs {
		if _, ok := f.typeParams[name]; ok {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f *javaFile) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.src)
}

func javaChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func javaIsPrivate(n *sitter.Node) bool {
	mods := javaChildOfType(n, "modifiers")
	if mods == nil {
		return false
	}
	for i := 0; i < int(mods.ChildCount()); i++ {
		if mods.Child(i).Type() == "private" {
			return true
		}
	}
	return false
}

func javaIsComment(n *sitter.Node) bool {
	switch n.Type() {
	case "block_comment", "line_comment", "comment":
		return true
	}
	return false
}

// collapse joins the whitespace-separated words of s with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// indentLines trims each line of text and indents it.
func indentLines(text, indent string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, indent+l)
		}
	}
	return strings.Join(out, "\n")
}
