package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) Extension() string { return ".go" }

func (g *GoExtractor) GetQuery() string {
	return `
		(package_clause (package_identifier) @package)
		(import_spec path: (_) @import)
		(function_declaration) @func
		(method_declaration) @func
		(type_spec) @type
		(const_spec) @const
		(var_spec) @var
	`
}

func (g *GoExtractor) Collect(captureName string, node *sitter.Node, sourceCode []byte, file *File) {
	switch captureName {
	case "package":
		file.Package = node.Content(sourceCode)
	case "import":
		file.Imports = append(file.Imports, strings.Trim(node.Content(sourceCode), "\"`"))
	case "func":
		if fn, ok := g.extractFunction(node, sourceCode); ok {
			file.Functions = append(file.Functions, fn)
		}
	case "type":
		if t, ok := g.extractType(node, sourceCode); ok {
			file.Types = append(file.Types, t)
		}
	case "const":
		if !isTopLevel(node) {
			return
		}
		file.Constants = append(file.Constants, g.extractValues(node, sourceCode)...)
	case "var":
		// Only package-level vars; locals would churn with every body edit.
		if !isTopLevel(node) {
			return
		}
		file.Variables = append(file.Variables, g.extractValues(node, sourceCode)...)
	}
}

func isTopLevel(spec *sitter.Node) bool {
	for p := spec.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "source_file":
			return true
		case "block", "function_declaration", "method_declaration", "func_literal":
			return false
		}
	}
	return false
}

func (g *GoExtractor) extractType(node *sitter.Node, sourceCode []byte) (Type, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || !isTopLevel(node) {
		return Type{}, false
	}

	declNode := node.Parent()
	if declNode == nil || declNode.Type() != "type_declaration" {
		declNode = node
	}

	t := Type{
		Name: nameNode.Content(sourceCode),
		Kind: "type",
		Doc:  g.extractDocComment(declNode, sourceCode),
	}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			t.Kind = "struct"
			t.Fields = g.extractFields(typeNode, sourceCode)
		case "interface_type":
			t.Kind = "interface"
			t.Methods = g.extractInterfaceMethods(typeNode, sourceCode)
		}
	}
	return t, true
}

func (g *GoExtractor) extractFields(structNode *sitter.Node, sourceCode []byte) []Field {
	fields := []Field{}
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		if child := structNode.Child(i); child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return fields
	}

	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		decl := fieldList.NamedChild(i)
		if decl.Type() != "field_declaration" {
			continue
		}

		var fieldType, fieldTag string
		if typeNode := decl.ChildByFieldName("type"); typeNode != nil {
			fieldType = typeNode.Content(sourceCode)
		}
		if tagNode := decl.ChildByFieldName("tag"); tagNode != nil {
			fieldTag = tagNode.Content(sourceCode)
		}

		named := false
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			child := decl.NamedChild(j)
			if child.Type() == "field_identifier" {
				fields = append(fields, Field{Name: child.Content(sourceCode), Type: fieldType, Tag: fieldTag})
				named = true
			}
		}

		// Embedded field: named after its type.
		if !named && fieldType != "" {
			name := fieldType
			if dot := strings.LastIndex(name, "."); dot != -1 {
				name = name[dot+1:]
			}
			fields = append(fields, Field{Name: strings.TrimPrefix(name, "*"), Type: fieldType, Tag: fieldTag})
		}
	}
	return fields
}

// extractInterfaceMethods returns method signatures and embedded type names
// in declaration order.
func (g *GoExtractor) extractInterfaceMethods(interfaceNode *sitter.Node, sourceCode []byte) []string {
	methods := []string{}
	for i := 0; i < int(interfaceNode.NamedChildCount()); i++ {
		n := interfaceNode.NamedChild(i)
		switch n.Type() {
		case "method_spec_list":
			methods = append(methods, g.extractInterfaceMethods(n, sourceCode)...)
		case "method_elem", "method_spec", "type_elem", "constraint_elem", "type_identifier", "qualified_type":
			methods = append(methods, collapseSpace(n.Content(sourceCode)))
		}
	}
	return methods
}

func (g *GoExtractor) extractFunction(node *sitter.Node, sourceCode []byte) (Function, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return Function{}, false
	}

	fn := Function{
		Name:       nameNode.Content(sourceCode),
		Parameters: []Param{},
		Returns:    []Return{},
		Doc:        g.extractDocComment(node, sourceCode),
	}
	if node.Type() == "method_declaration" {
		if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
			fn.Receiver = receiverNode.Content(sourceCode)
		}
	}
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		fn.Parameters = g.extractParams(paramsNode, sourceCode)
	}
	if resultNode := node.ChildByFieldName("result"); resultNode != nil {
		fn.Returns = g.extractReturns(resultNode, sourceCode)
	}

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		fn.Signature = string(sourceCode[node.StartByte():bodyNode.StartByte()])
	} else {
		fn.Signature = node.Content(sourceCode)
	}
	fn.Signature = collapseSpace(fn.Signature)
	return fn, true
}

// extractValues expands a const or var spec into one Value per name.
func (g *GoExtractor) extractValues(node *sitter.Node, sourceCode []byte) []Value {
	declNode := node.Parent()
	if declNode == nil {
		declNode = node
	}
	// Grouped specs carry their own comment; single ones hang it on the decl.
	doc := g.extractDocComment(node, sourceCode)
	if doc == "" {
		doc = g.extractDocComment(declNode, sourceCode)
	}

	var typ, value string
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		typ = typeNode.Content(sourceCode)
	}
	if valueNode := node.ChildByFieldName("value"); valueNode != nil {
		value = collapseSpace(valueNode.Content(sourceCode))
	}

	var values []Value
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "identifier" || child.Content(sourceCode) == "_" {
			continue
		}
		values = append(values, Value{Name: child.Content(sourceCode), Type: typ, Value: value, Doc: doc})
	}
	return values
}

func (g *GoExtractor) extractDocComment(node *sitter.Node, sourceCode []byte) string {
	var commentLines []string
	current := node
	for {
		prev := current.PrevSibling()
		if prev == nil || current.StartPoint().Row-prev.EndPoint().Row > 1 {
			break
		}
		if prev.Type() != "comment" {
			break
		}
		commentLines = append([]string{prev.Content(sourceCode)}, commentLines...)
		current = prev
	}
	return cleanDocComment(strings.Join(commentLines, "\n"))
}

func (g *GoExtractor) extractParams(paramsNode *sitter.Node, sourceCode []byte) []Param {
	params := []Param{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		if pNode.Type() != "parameter_declaration" && pNode.Type() != "variadic_parameter_declaration" {
			continue
		}
		pType := ""
		if tn := pNode.ChildByFieldName("type"); tn != nil {
			pType = tn.Content(sourceCode)
		}
		if pNode.Type() == "variadic_parameter_declaration" {
			pType = "..." + pType
		}

		var names []string
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			if child := pNode.NamedChild(j); child.Type() == "identifier" {
				names = append(names, child.Content(sourceCode))
			}
		}
		if len(names) == 0 {
			params = append(params, Param{Type: pType})
			continue
		}
		for _, n := range names {
			params = append(params, Param{Name: n, Type: pType})
		}
	}
	return params
}

func (g *GoExtractor) extractReturns(resultNode *sitter.Node, sourceCode []byte) []Return {
	returns := []Return{}
	if resultNode.Type() == "parameter_list" {
		for _, p := range g.extractParams(resultNode, sourceCode) {
			returns = append(returns, Return{Name: p.Name, Type: p.Type})
		}
		return returns
	}
	return append(returns, Return{Type: resultNode.Content(sourceCode)})
}

func cleanDocComment(rawComment string) string {
	if rawComment == "" {
		return ""
	}
	lines := strings.Split(rawComment, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "//")
		l = strings.TrimPrefix(l, "/*")
		l = strings.TrimSuffix(l, "*/")
		cleaned = append(cleaned, strings.TrimSpace(l))
	}
	return strings.Join(cleaned, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
