package emitter

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
)

// verifyPrelude wraps generated code in a function body so the follow-up assignment
// statements are legal C. Reported lines are relative to the generated code.
const verifyPrelude = "void dsconv_verify(void) {\n"

// SyntaxIssue is an ERROR or MISSING node found in generated code.
type SyntaxIssue struct {
	Line   int
	Column int
	Kind   string // "error" or "missing"
	Text   string
}

func (i SyntaxIssue) String() string {
	if i.Kind == "missing" {
		return fmt.Sprintf("%d:%d: missing %s", i.Line, i.Column, i.Text)
	}
	return fmt.Sprintf("%d:%d: syntax error near %q", i.Line, i.Column, i.Text)
}

// Verify parses generated struct code with the tree-sitter C grammar and returns
// every syntax problem it finds. Member initializers inside a struct body are not ISO C,
// so code produced with InternalInit is expected to report issues.
func Verify(code string) ([]SyntaxIssue, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(sitter.NewLanguage(c.Language())); err != nil {
		return nil, fmt.Errorf("failed to load C grammar: %w", err)
	}

	source := []byte(verifyPrelude + code + "\n}\n")
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse generated code")
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var issues []SyntaxIssue
	walk(root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			issues = append(issues, newIssue(n, "missing", n.Kind()))
			return false
		case n.IsError():
			issues = append(issues, newIssue(n, "error", nodeText(n, source)))
			return false
		}
		return n.HasError()
	})
	return issues, nil
}

func newIssue(n *sitter.Node, kind, text string) SyntaxIssue {
	pos := n.StartPosition()
	line := int(pos.Row) // prelude occupies row 0
	if line < 1 {
		line = 1
	}
	return SyntaxIssue{
		Line:   line,
		Column: int(pos.Column) + 1,
		Kind:   kind,
		Text:   text,
	}
}

func nodeText(n *sitter.Node, source []byte) string {
	text := string(source[n.StartByte():n.EndByte()])
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return text
}

// walk visits nodes depth-first; fn returns false to skip a node's children.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		walk(n.Child(i), fn)
	}
}
