package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("medaltable/internal/htmlutil")

// GetText concatenates every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, "")
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, separator string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		buffer.WriteString(separator)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, separator)
		child = child.NextSibling
	}
}

// Parse parses content as an HTML document, plain text becomes a document with a single text node.
func Parse(content string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

// ScriptBlocks returns the trimmed, non-empty contents of every <script> element.
func ScriptBlocks(ctx context.Context, doc *goquery.Document) []string {
	_, span := tracer.Start(ctx, "ScriptBlocks")
	defer span.End()

	var blocks []string
	for _, script := range doc.Find("script").Nodes {
		text := strings.TrimSpace(GetText(script))
		if text == "" {
			continue
		}
		blocks = append(blocks, text)
	}
	span.SetAttributes(attribute.Int("blocks", len(blocks)))
	return blocks
}

// StripMarkup drops script and style elements entirely, then returns the remaining text
// with whitespace collapsed to single spaces. Entities are unescaped by the parser.
func StripMarkup(ctx context.Context, doc *goquery.Document) string {
	_, span := tracer.Start(ctx, "StripMarkup")
	defer span.End()

	clone := goquery.CloneDocument(doc)
	clone.Find("script, style").Remove()

	var buffer bytes.Buffer
	for _, node := range clone.Nodes {
		// a separator between text nodes keeps adjacent cells from gluing together
		getTextRecursive(node, &buffer, " ")
	}
	return strings.Join(strings.Fields(buffer.String()), " ")
}

var tagRegex = regexp.MustCompile(`<[a-zA-Z!/][^>]*>`)

// LooksLikeMarkup reports whether content contains at least one HTML tag.
func LooksLikeMarkup(content string) bool {
	return tagRegex.MatchString(content)
}
