// # internal/engine/parser/languages.go
package parser

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

const (
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
)

var extensionLanguages = map[string]string{
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

func loadGrammar(lang string) *sitter.Language {
	switch lang {
	case LangJavaScript:
		return sitter.NewLanguage(tree_sitter_javascript.Language())
	case LangTypeScript:
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case LangTSX:
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	}
	return nil
}

// LanguageForPath returns the language id for path's extension, or "".
func LanguageForPath(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions lists handled extensions in lexical order.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
