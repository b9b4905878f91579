package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/metrics"
)

//go:embed templates/report.html.tmpl
var reportTemplate string

type htmlData struct {
	Summary   *analyzer.Summary
	Generated string
}

// WriteHTML renders s as a standalone HTML page.
func WriteHTML(w io.Writer, s *analyzer.Summary) error {
	tmpl, err := parseTemplate("report", reportTemplate)
	if err != nil {
		return err
	}
	return execute(w, tmpl, htmlData{Summary: s, Generated: time.Now().UTC().Format(time.RFC3339)})
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"weighted": weighted,
			"pct":      pct,
			"score":    score,
		}).
		Parse(text)
	if err != nil {
		return nil, failure.FromTemplate(err)
	}
	return tmpl, nil
}

// execute runs tmpl. A helper failing with a classified error keeps its kind.
func execute(w io.Writer, tmpl *template.Template, data any) error {
	if err := tmpl.Execute(w, data); err != nil {
		return failure.FromTemplate(err)
	}
	return nil
}

// weighted dereferences the optional scores of a file or function.
func weighted(w *metrics.Weighted) (metrics.Weighted, error) {
	if w == nil {
		return metrics.Weighted{}, failure.New(failure.KindOptionUnwrap)
	}
	return *w, nil
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", 100*f)
}

func score(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
