package conv

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags | html.HrefTargetBlank
	tgPolicy   = bluemonday.NewPolicy()

	spoilerRe = regexp.MustCompile(`\|\|([^|<>\n]+?)\|\|`)
	codeRe    = regexp.MustCompile(`(?s)<code[^>]*>.*?</code>`)
)

func init() {
	// Allowed tags https://core.telegram.org/bots/api#html-style
	tgPolicy.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote", "tg-spoiler")
	tgPolicy.AllowAttrs("href").OnElements("a")
	tgPolicy.AllowAttrs("class").OnElements("code")
}

// MarkdownToTelegramHTML renders a model reply for Telegram's HTML parse mode.
// Headings become bold lines, lists become bullet or numbered lines and
// ||spoilers|| outside code become tg-spoiler tags.
func MarkdownToTelegramHTML(md []byte) string {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags:          htmlFlags,
		RenderNodeHook: renderTelegramNode,
	})
	unsafeHTML := markdown.Render(p.Parse(md), renderer)

	return string(tgPolicy.SanitizeBytes(spoilers(unsafeHTML)))
}

// renderTelegramNode replaces the block tags Telegram has no use for.
func renderTelegramNode(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	switch n := node.(type) {
	case *ast.Heading:
		if entering {
			io.WriteString(w, "<b>")
		} else {
			io.WriteString(w, "</b>\n")
		}
		return ast.GoToNext, true
	case *ast.List:
		if n.IsFootnotesList {
			return ast.GoToNext, false
		}
		if entering {
			if _, nested := n.Parent.(*ast.ListItem); nested {
				io.WriteString(w, "\n")
			}
		}
		return ast.GoToNext, true
	case *ast.ListItem:
		if n.IsFootnotesList {
			return ast.GoToNext, false
		}
		if entering {
			io.WriteString(w, strings.Repeat("  ", listDepth(n)-1)+bullet(n))
		} else if !endsNestedList(n) {
			io.WriteString(w, "\n")
		}
		return ast.GoToNext, true
	}
	return ast.GoToNext, false
}

func bullet(item *ast.ListItem) string {
	list, ok := item.Parent.(*ast.List)
	if !ok || list.ListFlags&ast.ListTypeOrdered == 0 {
		return "• "
	}

	start := list.Start
	if start <= 0 {
		start = 1
	}
	for i, child := range list.Children {
		if child == ast.Node(item) {
			return fmt.Sprintf("%d. ", start+i)
		}
	}
	return fmt.Sprintf("%d. ", start)
}

func listDepth(node ast.Node) int {
	depth := 0
	for p := node.GetParent(); p != nil; p = p.GetParent() {
		if _, ok := p.(*ast.List); ok {
			depth++
		}
	}
	return max(depth, 1)
}

// endsNestedList reports whether the item's last child is a list, which
// already closed its own line.
func endsNestedList(item *ast.ListItem) bool {
	if len(item.Children) == 0 {
		return false
	}
	_, ok := item.Children[len(item.Children)-1].(*ast.List)
	return ok
}

// spoilers rewrites ||text|| to tg-spoiler tags, leaving code untouched.
func spoilers(src []byte) []byte {
	var out []byte
	last := 0
	for _, loc := range codeRe.FindAllIndex(src, -1) {
		out = append(out, spoilerRe.ReplaceAll(src[last:loc[0]], []byte("<tg-spoiler>$1</tg-spoiler>"))...)
		out = append(out, src[loc[0]:loc[1]]...)
		last = loc[1]
	}
	return append(out, spoilerRe.ReplaceAll(src[last:], []byte("<tg-spoiler>$1</tg-spoiler>"))...)
}
