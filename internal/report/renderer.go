// Package report renders the merged article list as a single HTML document.
package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/helixir/literature-watch/internal/domain"
)

// reportTemplate lays out the summary header followed by one colored block
// per article. Link targets are emitted as hrefs only when a real link is
// present; the "Not available" sentinel renders as plain text.
const reportTemplate = `<h3>Search terms: {{join .Queries ", "}}</h3>
<p>{{len .Articles}} total results</p>
<p>Page {{.Page}}</p>
<p>Timeframe: {{.TimeframeLabel}}</p>
{{range .Articles}}<div style="margin-bottom: 20px; padding: 10px; background-color: {{.ColorHex}};">
  <h3>{{.Title}}</h3>
  <p><strong>Authors:</strong> {{.AuthorLine}}</p>
  {{if eq .Source "pubmed"}}<p><strong>Journal:</strong> {{.Journal}}</p>
  {{else}}<p><strong>Server:</strong> {{.Journal}}</p>
  {{end}}<p><strong>Date:</strong> {{.Date.Format "2006-01-02"}}</p>
  {{if .PMID}}<p><strong>PMID:</strong> {{.PMID}}</p>
  {{end}}{{if hasLink .}}<p><strong>Link:</strong> <a href="{{.Link}}" target="_blank">{{.Link}}</a></p>
  {{else}}<p><strong>Link:</strong> {{.Link}}</p>
  {{end}}<p><strong>Matching Queries:</strong> {{join .MatchingQueries ", "}}</p>
</div>
{{end}}`

// Renderer serializes merged, sorted article lists into HTML reports.
type Renderer struct {
	tmpl *template.Template
}

// reportData is the template context for one report.
type reportData struct {
	Queries        []string
	Articles       []*domain.Article
	Page           int
	TimeframeLabel string
}

// NewRenderer creates a report renderer. It panics only on a malformed
// built-in template, which is a programming error.
func NewRenderer() *Renderer {
	tmpl := template.Must(template.New("report").Funcs(template.FuncMap{
		"join": strings.Join,
		"hasLink": func(a *domain.Article) bool {
			return a.Link != "" && a.Link != domain.LinkNotAvailable
		},
	}).Parse(reportTemplate))

	return &Renderer{tmpl: tmpl}
}

// Render writes the HTML report for the given articles to w.
// Articles are emitted in slice order; callers pass the merged list already
// sorted by date descending.
func (r *Renderer) Render(w io.Writer, articles []*domain.Article, queries []string, page int, timeframe domain.Timeframe) error {
	label := string(timeframe)
	if label == "" {
		label = "All time"
	}

	data := reportData{
		Queries:        queries,
		Articles:       articles,
		Page:           page,
		TimeframeLabel: label,
	}

	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}
