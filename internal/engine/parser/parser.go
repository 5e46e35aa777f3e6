// # internal/engine/parser/parser.go
package parser

import (
	"strings"
	"time"

	"github.com/heystewart/knip/internal/core/errors"
	"github.com/heystewart/knip/internal/shared/observability"
)

// Parser extracts import and export facts from JavaScript and TypeScript
// sources. Safe for concurrent use; each call leases a pooled parser.
type Parser struct {
	pools     map[string]*ParserPool
	extractor *jsExtractor
}

func NewParser() *Parser {
	p := &Parser{
		pools:     make(map[string]*ParserPool),
		extractor: &jsExtractor{},
	}
	for _, lang := range []string{LangJavaScript, LangTypeScript, LangTSX} {
		p.pools[lang] = NewParserPool(loadGrammar(lang))
	}
	return p
}

func (p *Parser) Supports(path string) bool {
	return LanguageForPath(path) != ""
}

// ParseFile parses content as the file at path. An empty path is rejected
// before any parsing happens.
func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.CodeValidationError, "parse requires a file path")
	}
	lang := LanguageForPath(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	}()

	pool := p.pools[lang]
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		err := errors.New(errors.CodeParse, "parse failed")
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	defer tree.Close()

	file, err := p.extractor.Extract(tree.RootNode(), content, path, lang)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParse, "extraction failed"), errors.CtxPath, path)
	}
	return file, nil
}
