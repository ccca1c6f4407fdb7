package newsletter

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"AINewsletter/internal/domain"
)

//go:embed templates/newsletter.html.tmpl
var templateFS embed.FS

var page = template.Must(template.New("newsletter.html.tmpl").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(templateFS, "templates/newsletter.html.tmpl"))

// Render produces the HTML body of the newsletter.
func Render(n domain.Newsletter) (string, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render newsletter: %w", err)
	}
	return buf.String(), nil
}

// PlainText derives the text/plain alternative from rendered HTML.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse newsletter html: %w", err)
	}

	var b strings.Builder
	b.WriteString(collapse(doc.Find("header h1").First().Text()))
	b.WriteString("\n")

	doc.Find("section.category").Each(func(_ int, section *goquery.Selection) {
		b.WriteString("\n== ")
		b.WriteString(collapse(section.Find("h2").First().Text()))
		if zh := collapse(section.Find("h2").Next().Text()); zh != "" {
			b.WriteString(" / ")
			b.WriteString(zh)
		}
		b.WriteString(" ==\n")

		if empty := section.Find("p.empty"); empty.Length() > 0 {
			b.WriteString(collapse(empty.Text()))
			b.WriteString("\n")
			return
		}

		section.Find("article").Each(func(_ int, article *goquery.Selection) {
			link := article.Find("h3 a").First()
			href, _ := link.Attr("href")
			b.WriteString("\n")
			b.WriteString(collapse(article.Find("h3").First().Text()))
			b.WriteString("\n")
			b.WriteString(href)
			b.WriteString("\n")
			article.Find("p").Each(func(_ int, p *goquery.Selection) {
				if text := collapse(p.Text()); text != "" {
					b.WriteString(text)
					b.WriteString("\n")
				}
			})
		})
	})

	if footer := collapse(doc.Find("footer").Text()); footer != "" {
		b.WriteString("\n--\n")
		b.WriteString(footer)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
