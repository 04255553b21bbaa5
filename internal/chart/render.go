package chart

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
)

// PlotlyURL is the plotly.js bundle loaded by rendered pages.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

//go:embed template.html
var pageTemplate string

var pageTmpl = template.Must(template.New("chart").Parse(pageTemplate))

type pageData struct {
	Title     string
	PlotlyURL string
	Figure    template.JS
}

// Render writes a standalone HTML page drawing fig.
func Render(w io.Writer, title string, fig *Figure) error {
	b, err := json.Marshal(fig)
	if err != nil {
		return fmt.Errorf("encode figure: %w", err)
	}
	// json.Marshal escapes <, > and &, so the payload cannot close the script element.
	return pageTmpl.Execute(w, pageData{Title: title, PlotlyURL: PlotlyURL, Figure: template.JS(b)})
}

// RenderBytes renders the page into memory.
func RenderBytes(title string, fig *Figure) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, title, fig); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveHTML writes a rendered page to path.
func SaveHTML(path string, page []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, page, 0o644)
}
