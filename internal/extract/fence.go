package extract

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// stripCodeFence returns the body of the first fenced code block in a model
// response, or the trimmed response when it has none. Leading prose such as
// "Here is the JSON:" before the fence is discarded.
func (e *Extractor) stripCodeFence(raw string) string {
	src := []byte(strings.TrimSpace(raw))
	doc := e.markdown.Parser().Parse(text.NewReader(src))

	var body []byte
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body = append(body, seg.Value(src)...)
		}
		found = true
		return ast.WalkStop, nil
	})
	if found {
		return strings.TrimSpace(string(body))
	}

	// Single-line fences like ```json{...}``` are not code blocks in markdown.
	s := string(src)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimLeft(s, "`")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
		s = strings.TrimSpace(strings.TrimRight(s, "`"))
	}
	return s
}
