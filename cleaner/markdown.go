package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// defaultConverter is shared; a Converter is safe for concurrent use.
var defaultConverter = newMarkdownConverter()

// newMarkdownConverter creates a Converter for post bodies pasted as HTML:
//
//   - base plugin: strips script, style, iframe, noscript, head and comments.
//   - commonmark plugin: headings, lists, links, code blocks and emphasis.
//   - table plugin: keeps simple tables readable in the stored text.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown converts sanitized HTML to Markdown. Relative links and image
// sources are resolved against domain when it is set.
func ToMarkdown(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	if domain == "" {
		return conv.ConvertString(htmlContent)
	}
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
