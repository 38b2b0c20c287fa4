package handlers

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"

	"recview/internal/catalog"
	"recview/internal/filesystem"
	"recview/internal/logging"
	"recview/internal/transcoder"
)

// Placeholders substituted in the page shell.
const (
	BreadcrumbsPlaceholder = "{{BREADCRUMBS}}"
	RowsPlaceholder        = "{{VIDEO_TABLE_ROWS}}"
)

//go:embed templates/index.html
var defaultTemplate string

// LoadTemplate reads the page shell from path, or returns the embedded one
// when path is empty. A shell without the rows placeholder is rejected.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	shell := string(data)
	if !strings.Contains(shell, RowsPlaceholder) {
		return "", fmt.Errorf("template %s has no %s placeholder", path, RowsPlaceholder)
	}
	return shell, nil
}

var fragments = template.Must(template.New("fragments").Parse(`
{{- define "breadcrumbs" -}}
<nav class="breadcrumbs">
{{- range $i, $c := . -}}
{{- if $i}}<span class="sep">/</span>{{end -}}
{{- if $c.Current}}<span class="crumb current">{{$c.Name}}</span>
{{- else}}<a class="crumb" href="{{$c.Href}}">{{$c.Name}}</a>{{end -}}
{{- end -}}
</nav>
{{- end -}}

{{- define "rows" -}}
{{- if .Parent -}}
<tr class="dir parent"><td class="name"><a href="{{.Parent}}">..</a></td><td></td><td></td><td></td></tr>
{{- end -}}
{{- range .Entries -}}
{{- if .Dir -}}
<tr class="dir"><td class="name"><a href="{{.Href}}">{{.Name}}/</a></td><td></td><td></td><td></td></tr>
{{- else -}}
<tr class="file">
<td class="name"><a href="{{.Href}}" class="play" data-src="{{.Href}}" data-status="{{.StatusHref}}">{{.Name}}</a></td>
<td class="size">{{.Size}}</td>
<td class="codec"><span class="badge{{if .Convert}} badge-convert{{end}}">{{.Codec}}</span></td>
<td class="download"><a href="{{.DownloadHref}}" download="{{.Name}}">Download</a></td>
</tr>
{{- end -}}
{{- else -}}
<tr class="empty"><td colspan="4">No videos found</td></tr>
{{- end -}}
{{- end -}}
`))

type crumbView struct {
	Name    string
	Href    string
	Current bool
}

type rowView struct {
	Dir          bool
	Name         string
	Href         string
	StatusHref   string
	DownloadHref string
	Size         string
	Codec        string
	Convert      bool
}

type rowsView struct {
	Parent  string
	Entries []rowView
}

// page renders the listing into the shell.
type page struct {
	shell string
}

func newPage(shell string) *page {
	if shell == "" {
		shell = defaultTemplate
	}
	return &page{shell: shell}
}

func (p *page) render(rel string, entries []catalog.MediaEntry) (string, error) {
	crumbs := catalog.Breadcrumbs(rel)
	crumbViews := make([]crumbView, len(crumbs))
	for i, c := range crumbs {
		crumbViews[i] = crumbView{
			Name:    c.Name,
			Href:    listingURL(c.RelPath),
			Current: i == len(crumbs)-1,
		}
	}

	rows := rowsView{Entries: make([]rowView, 0, len(entries))}
	if parent, ok := catalog.Parent(rel); ok {
		rows.Parent = listingURL(parent)
	}
	for _, e := range entries {
		if e.IsDir() {
			rows.Entries = append(rows.Entries, rowView{
				Dir:  true,
				Name: e.Name,
				Href: listingURL(e.RelPath),
			})
			continue
		}
		codec := e.Codec
		if codec == "" {
			codec = transcoder.CodecUnknown
		}
		rows.Entries = append(rows.Entries, rowView{
			Name:         e.Name,
			Href:         videoURL(e.RelPath),
			StatusHref:   "/status/" + escapePath(e.RelPath),
			DownloadHref: downloadURL(e.RelPath),
			Size:         e.SizeHuman,
			Codec:        codec,
			Convert:      transcoder.NeedsConversion(codec),
		})
	}

	var crumbHTML, rowsHTML strings.Builder
	if err := fragments.ExecuteTemplate(&crumbHTML, "breadcrumbs", crumbViews); err != nil {
		return "", fmt.Errorf("render breadcrumbs: %w", err)
	}
	if err := fragments.ExecuteTemplate(&rowsHTML, "rows", rows); err != nil {
		return "", fmt.Errorf("render rows: %w", err)
	}

	return strings.NewReplacer(
		BreadcrumbsPlaceholder, crumbHTML.String(),
		RowsPlaceholder, rowsHTML.String(),
	).Replace(p.shell), nil
}

// ListDirectory renders the listing page for ?dir=, which defaults to the root.
// GET /
func (h *Handlers) ListDirectory(w http.ResponseWriter, r *http.Request) {
	rel := catalog.CleanRel(r.URL.Query().Get("dir"))

	dir, err := catalog.Resolve(h.config.MediaDir, rel)
	if err != nil {
		logRejected(r, r.URL.Query().Get("dir"), err)
		notFound(w, r)
		return
	}

	info, err := filesystem.StatWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil || !info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to stat %s: %v", dir, err)
		}
		notFound(w, r)
		return
	}

	entries := h.walker.List(r.Context(), rel)

	body, err := h.page.render(rel, entries)
	if err != nil {
		logging.Error("Failed to render listing for %q: %v", rel, err)
		http.Error(w, "Failed to render listing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(body)); err != nil {
		logging.Debug("Failed to write listing: %v", err)
	}
}
