package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/constant"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

type enumType struct {
	Name   string
	Consts []enumConst
}

type enumConst struct {
	Name  string
	Label string
	Value uint64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "enumstr: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fileFlag := flag.String("file", "", "go file containing //go:generate enumstr")
	flag.Parse()

	fileName := strings.TrimSpace(*fileFlag)
	if fileName == "" && flag.NArg() > 0 {
		fileName = strings.TrimSpace(flag.Arg(0))
	}
	if fileName == "" {
		fileName = strings.TrimSpace(os.Getenv("GOFILE"))
	}
	if fileName == "" {
		return errors.New("missing source file; set GOFILE or pass -file")
	}
	fileName = filepath.Base(fileName)
	if filepath.Ext(fileName) != ".go" {
		return fmt.Errorf("source file must be a .go file: %s", fileName)
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedSyntax |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles,
		Dir: dir,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			return parser.ParseFile(fset, filename, src, parser.ParseComments)
		},
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return errors.New("no packages found")
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return fmt.Errorf("type check failed: %s", pkg.Errors[0])
	}
	if pkg.Fset == nil {
		return errors.New("missing fileset")
	}
	if len(pkg.Syntax) == 0 {
		return errors.New("no go files found in package")
	}

	var targetFile *ast.File
	for i, file := range pkg.Syntax {
		var name string
		if i < len(pkg.CompiledGoFiles) {
			name = pkg.CompiledGoFiles[i]
		} else if i < len(pkg.GoFiles) {
			name = pkg.GoFiles[i]
		}
		if filepath.Base(name) == fileName {
			targetFile = file
			break
		}
	}
	if targetFile == nil {
		return fmt.Errorf("file %s not found in package", fileName)
	}

	enums, err := collectEnumTypes(targetFile, pkg.TypesInfo, pkg.Fset)
	if err != nil {
		return err
	}
	if len(enums) == 0 {
		return fmt.Errorf("no enum types found in %s", fileName)
	}

	out, err := render(pkg.Name, enums)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(fileName, ".go")
	outPath := filepath.Join(dir, base+"_enumstr.go")
	return os.WriteFile(outPath, out, 0o644)
}

func collectEnumTypes(file *ast.File, info *types.Info, fset *token.FileSet) ([]enumType, error) {
	var results []enumType
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if !commentGroupHasEnumstr(typeSpec.Doc) && !commentGroupHasEnumstr(gen.Doc) {
				continue
			}

			obj := info.Defs[typeSpec.Name]
			if obj == nil {
				pos := fset.Position(typeSpec.Pos())
				return nil, fmt.Errorf("missing type info for %s at %s", typeSpec.Name.Name, pos)
			}
			name, ok := obj.(*types.TypeName)
			if !ok {
				pos := fset.Position(typeSpec.Pos())
				return nil, fmt.Errorf("expected type name for %s at %s", typeSpec.Name.Name, pos)
			}
			if !isUnsignedInteger(name.Type()) {
				pos := fset.Position(typeSpec.Pos())
				return nil, fmt.Errorf("enumstr requires an unsigned integer type at %s", pos)
			}

			consts, err := collectConsts(file, info, name)
			if err != nil {
				return nil, err
			}
			if len(consts) == 0 {
				return nil, fmt.Errorf("no constants found for %s", typeSpec.Name.Name)
			}
			labelConsts(typeSpec.Name.Name, consts)

			results = append(results, enumType{Name: typeSpec.Name.Name, Consts: consts})
		}
	}
	return results, nil
}

// collectConsts gathers the file's constants of the enum type in
// declaration order. Aliases of an already seen value are dropped so the
// generated switch stays valid.
func collectConsts(file *ast.File, info *types.Info, typeName *types.TypeName) ([]enumConst, error) {
	var consts []enumConst
	seen := make(map[uint64]bool)
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, ident := range valueSpec.Names {
				if ident.Name == "_" {
					continue
				}
				obj := info.Defs[ident]
				c, ok := obj.(*types.Const)
				if !ok || !types.Identical(c.Type(), typeName.Type()) {
					continue
				}
				value, ok := constant.Uint64Val(constant.ToInt(c.Val()))
				if !ok {
					return nil, fmt.Errorf("constant %s does not fit uint64", ident.Name)
				}
				if seen[value] {
					continue
				}
				seen[value] = true
				consts = append(consts, enumConst{Name: ident.Name, Value: value})
			}
		}
	}
	return consts, nil
}

// labelConsts derives the string label of each constant: the type name
// prefix is stripped when every constant carries it, otherwise the
// longest shared leading token run is stripped, then the remainder is
// written in snake case.
func labelConsts(typeName string, consts []enumConst) {
	typeTokens := splitCamel(typeName)

	strip := len(typeTokens)
	for _, c := range consts {
		tokens := splitCamel(c.Name)
		if !hasTokenPrefix(tokens, typeTokens) || len(tokens) == len(typeTokens) {
			strip = 0
			break
		}
	}

	if strip == 0 {
		strip = commonTokenPrefix(consts)
	}

	for i := range consts {
		tokens := splitCamel(consts[i].Name)
		consts[i].Label = snakeCase(tokens[strip:])
	}
}

func hasTokenPrefix(tokens, prefix []string) bool {
	if len(tokens) < len(prefix) {
		return false
	}
	for i := range prefix {
		if tokens[i] != prefix[i] {
			return false
		}
	}
	return true
}

// commonTokenPrefix returns the longest token run shared by every
// constant name that still leaves at least one token on each.
func commonTokenPrefix(consts []enumConst) int {
	if len(consts) == 0 {
		return 0
	}
	first := splitCamel(consts[0].Name)
	limit := len(first) - 1
	for _, c := range consts[1:] {
		tokens := splitCamel(c.Name)
		if len(tokens)-1 < limit {
			limit = len(tokens) - 1
		}
		for i := 0; i < limit; i++ {
			if tokens[i] != first[i] {
				limit = i
				break
			}
		}
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// splitCamel splits a Go identifier into camel tokens. An uppercase run
// followed by a lowercase letter splits before its last character, so
// GTCOrder becomes GTC and Order.
func splitCamel(s string) []string {
	runes := []rune(s)
	var tokens []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev := runes[i-1]
		cur := runes[i]
		boundary := false
		switch {
		case isUpper(cur) && !isUpper(prev):
			boundary = true
		case isUpper(prev) && isUpper(cur) && i+1 < len(runes) && isLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			tokens = append(tokens, string(runes[start:i]))
			start = i
		}
	}
	tokens = append(tokens, string(runes[start:]))
	return tokens
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func snakeCase(tokens []string) string {
	lowered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(tok))
	}
	return strings.Join(lowered, "_")
}

func isUnsignedInteger(t types.Type) bool {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	info := basic.Info()
	return info&types.IsInteger != 0 && info&types.IsUnsigned != 0
}

func commentGroupHasEnumstr(group *ast.CommentGroup) bool {
	if group == nil {
		return false
	}
	for _, comment := range group.List {
		for _, line := range splitCommentLines(comment.Text) {
			if isEnumstrDirective(line) {
				return true
			}
		}
	}
	return false
}

func splitCommentLines(text string) []string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "//"):
		line := strings.TrimSpace(strings.TrimPrefix(text, "//"))
		return []string{line}
	case strings.HasPrefix(text, "/*"):
		body := strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
		lines := strings.Split(body, "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "*") {
				line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
			}
			lines[i] = line
		}
		return lines
	default:
		return []string{text}
	}
}

func isEnumstrDirective(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "go:generate") {
		return false
	}
	fields := strings.Fields(line)
	return len(fields) >= 2 && fields[1] == "enumstr"
}

func render(pkgName string, enums []enumType) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by enumstr; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)
	buf.WriteString("import \"strconv\"\n\n")

	for i, enum := range enums {
		if i > 0 {
			buf.WriteString("\n")
		}
		writeStringer(&buf, enum)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func writeStringer(buf *bytes.Buffer, enum enumType) {
	fmt.Fprintf(buf, "func (x %s) String() string {\n", enum.Name)
	buf.WriteString("\tswitch x {\n")
	for _, c := range enum.Consts {
		fmt.Fprintf(buf, "\tcase %s:\n", c.Name)
		fmt.Fprintf(buf, "\t\treturn %q\n", c.Label)
	}
	buf.WriteString("\tdefault:\n")
	fmt.Fprintf(buf, "\t\treturn %q + strconv.FormatUint(uint64(x), 10) + \")\"\n", enum.Name+"(")
	buf.WriteString("\t}\n")
	buf.WriteString("}\n")
}
