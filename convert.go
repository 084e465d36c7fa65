// convert.go
package main

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// artifactTemplate is the markdown document written for each article: a
// header block with the remote identifiers and version markers, then the
// converted body.
const artifactTemplate = `# {{.Title}}

**Article ID:** {{.ID}}
**Section ID:** {{.SectionID}}
**Article URL:** {{.HTMLURL}}
**Created At:** {{.CreatedAt}}
**Updated At:** {{.UpdatedAt}}
**Edited At:** {{.EditedAt}}

---

{{.Body}}
`

// Converter turns a remote article into the local markdown artifact.
type Converter struct {
	md   *md.Converter
	tmpl *template.Template
}

// NewConverter creates a converter with the default conversion rules.
func NewConverter() *Converter {
	return &Converter{
		md:   md.NewConverter("", true, nil),
		tmpl: template.Must(template.New("artifact").Parse(artifactTemplate)),
	}
}

// Render converts the article body to markdown and wraps it in the artifact
// header.
func (c *Converter) Render(a *RemoteArticle) (string, error) {
	body, err := c.md.ConvertString(a.Body)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}

	data := struct {
		Title     string
		ID        int64
		SectionID int64
		HTMLURL   string
		CreatedAt string
		UpdatedAt string
		EditedAt  string
		Body      string
	}{
		Title:     a.Title,
		ID:        a.ID,
		SectionID: a.SectionID,
		HTMLURL:   orNA(a.HTMLURL),
		CreatedAt: orNA(a.CreatedAt),
		UpdatedAt: orNA(a.UpdatedAt),
		EditedAt:  orNA(a.EditedAt),
		Body:      strings.TrimSpace(body),
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering artifact: %w", err)
	}
	return buf.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
