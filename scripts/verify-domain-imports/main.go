// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command verify-domain-imports fails when the rename domain reaches for the
// chat transport, the daemon wiring or string matching on context errors.
package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// forbiddenImports are import path prefixes the domain must not depend on.
var forbiddenImports = []string{
	"net/http",
	"github.com/go-telegram-bot-api/",
	"github.com/ManuGH/renamebot/internal/infra/",
	"github.com/ManuGH/renamebot/internal/daemon",
	"github.com/ManuGH/renamebot/internal/config",
	"github.com/ManuGH/renamebot/internal/platform/httpx",
}

func main() {
	pattern := "./internal/domain/..."
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	violations, err := Analyze(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "❌ domain layering violations found:")
		for _, v := range violations {
			fmt.Fprintln(os.Stderr, v)
		}
		os.Exit(1)
	}
}

// Analyze inspects every non-test file matched by pattern.
func Analyze(pattern string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedName,
		Dir:  ".",
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			filename := cfg.Fset.Position(file.Package).Filename
			if filename == "" || strings.HasSuffix(filename, "_test.go") {
				continue
			}
			violations = append(violations, inspectFile(cfg.Fset, filename, file)...)
		}
	}
	return violations, nil
}

func inspectFile(fset *token.FileSet, filename string, file *ast.File) []string {
	var out []string
	for _, imp := range file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		for _, prefix := range forbiddenImports {
			if path == prefix || strings.HasPrefix(path, prefix) {
				out = append(out, formatViolation(fset, filename, imp.Pos(), fmt.Sprintf("forbidden import %q", path)))
				break
			}
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		val, _ := strconv.Unquote(lit.Value)
		lower := strings.ToLower(val)
		if strings.Contains(lower, "context canceled") || strings.Contains(lower, "deadline exceeded") {
			out = append(out, formatViolation(fset, filename, lit.Pos(), fmt.Sprintf("forbidden string literal %q (use errors.Is)", val)))
		}
		return true
	})
	return out
}

func formatViolation(fset *token.FileSet, filename string, pos token.Pos, msg string) string {
	if rel, err := filepath.Rel(".", filename); err == nil {
		filename = rel
	}
	return fmt.Sprintf("%s:%d: %s", filename, fset.Position(pos).Line, msg)
}
