package usecase

import (
	"fmt"
	"strings"

	"AINewsletter/internal/domain"
)

var markdownReplacer = strings.NewReplacer("*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]", "`", "\\`")

// buildDigestMessage formats the newsletter as a short Markdown message:
// one header per non-empty category followed by linked titles.
func buildDigestMessage(n domain.Newsletter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", markdownReplacer.Replace(n.Subject))

	for _, cat := range n.Categories {
		if len(cat.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n*%s* / %s\n", markdownReplacer.Replace(cat.Category.NameEN), markdownReplacer.Replace(cat.Category.NameZH))
		for i, item := range cat.Items {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, markdownReplacer.Replace(item.Title), item.URL)
		}
	}

	if n.ItemCount() == 0 {
		b.WriteString("\nNo new articles this week.\n")
	}
	return b.String()
}
