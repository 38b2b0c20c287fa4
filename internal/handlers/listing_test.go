package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestListDirectoryRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	if strings.Contains(body, BreadcrumbsPlaceholder) || strings.Contains(body, RowsPlaceholder) {
		t.Error("placeholders were not substituted")
	}

	doc := parseHTML(t, body)

	crumbs := doc.Find("nav.breadcrumbs .crumb")
	if crumbs.Length() != 1 || crumbs.First().Text() != "Home" || !crumbs.First().HasClass("current") {
		t.Errorf("root breadcrumbs = %d %q", crumbs.Length(), crumbs.Text())
	}

	var dirs []string
	doc.Find("tr.dir:not(.parent) td.name a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		dirs = append(dirs, s.Text()+" "+href)
	})
	want := []string{"cam1/ /?dir=cam1", "cam2/ /?dir=cam2"}
	if strings.Join(dirs, ",") != strings.Join(want, ",") {
		t.Errorf("directories = %v, want %v", dirs, want)
	}

	if doc.Find("tr.parent").Length() != 0 {
		t.Error("root listing should have no parent row")
	}
	if strings.Contains(body, ".cache") {
		t.Error("cache directory leaked into the listing")
	}
}

func TestListDirectorySubdir(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/?dir=cam1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	doc := parseHTML(t, rec.Body.String())

	current := doc.Find("nav.breadcrumbs .crumb.current")
	if current.Text() != "cam1" {
		t.Errorf("current crumb = %q, want cam1", current.Text())
	}
	if href, _ := doc.Find("nav.breadcrumbs a.crumb").First().Attr("href"); href != "/" {
		t.Errorf("home crumb href = %q, want /", href)
	}
	if href, _ := doc.Find("tr.parent a").Attr("href"); href != "/" {
		t.Errorf("parent href = %q, want /", href)
	}

	rows := doc.Find("tr.file")
	if rows.Length() != 2 {
		t.Fatalf("file rows = %d, want 2 (notes.txt must be skipped)", rows.Length())
	}

	tests := []struct {
		name     string
		codec    string
		convert  bool
		size     string
		download string
		status   string
	}{
		{"clip.mp4", "H.264", false, "10 B", "/videos/cam1/clip.mp4?download=1", "/status/cam1/clip.mp4"},
		{"hevc.mkv", "H.265", true, "17 B", "/videos/cam1/hevc.mkv?download=1", "/status/cam1/hevc.mkv"},
	}

	rows.Each(func(i int, row *goquery.Selection) {
		tt := tests[i]
		if got := row.Find("td.name a").Text(); got != tt.name {
			t.Errorf("row %d name = %q, want %q", i, got, tt.name)
		}
		badge := row.Find("td.codec .badge")
		if badge.Text() != tt.codec {
			t.Errorf("row %d codec = %q, want %q", i, badge.Text(), tt.codec)
		}
		if badge.HasClass("badge-convert") != tt.convert {
			t.Errorf("row %d badge-convert = %v, want %v", i, badge.HasClass("badge-convert"), tt.convert)
		}
		if got := row.Find("td.size").Text(); got != tt.size {
			t.Errorf("row %d size = %q, want %q", i, got, tt.size)
		}
		if got, _ := row.Find("td.download a").Attr("href"); got != tt.download {
			t.Errorf("row %d download = %q, want %q", i, got, tt.download)
		}
		if got, _ := row.Find("a.play").Attr("data-status"); got != tt.status {
			t.Errorf("row %d status href = %q, want %q", i, got, tt.status)
		}
	})

	if env.encoder.calls.Load() != 0 {
		t.Error("listing must not start transcodes")
	}
}

func TestListDirectoryEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/?dir=cam2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	doc := parseHTML(t, rec.Body.String())
	if doc.Find("tr.empty").Length() != 1 {
		t.Error("empty directory should render the empty row")
	}
}

func TestListDirectoryEscapesNames(t *testing.T) {
	env := newTestEnv(t)

	name := `<b>x & "y".mp4`
	if err := os.WriteFile(filepath.Join(env.root, "cam2", name), []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/?dir=cam2", nil)
	if strings.Contains(rec.Body.String(), "<b>x") {
		t.Error("file name was not escaped")
	}
	doc := parseHTML(t, rec.Body.String())
	if got := doc.Find("tr.file td.name a").Text(); got != name {
		t.Errorf("rendered name = %q, want %q", got, name)
	}
}

func TestListDirectoryRejected(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"cache dir", "/?dir=.cache", http.StatusNotFound},
		{"hidden segment", "/?dir=cam1/.hidden", http.StatusNotFound},
		{"missing dir", "/?dir=cam9", http.StatusNotFound},
		{"file instead of dir", "/?dir=cam1/clip.mp4", http.StatusNotFound},
		{"traversal is neutralized", "/?dir=../..", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, nil)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
			}
		})
	}
}

func TestLoadTemplate(t *testing.T) {
	shell, err := LoadTemplate("")
	if err != nil {
		t.Fatalf("LoadTemplate(\"\") error: %v", err)
	}
	if !strings.Contains(shell, BreadcrumbsPlaceholder) || !strings.Contains(shell, RowsPlaceholder) {
		t.Error("embedded template is missing a placeholder")
	}

	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.html")
	if err := os.WriteFile(custom, []byte("<table>{{VIDEO_TABLE_ROWS}}</table>"), 0o644); err != nil {
		t.Fatal(err)
	}
	shell, err = LoadTemplate(custom)
	if err != nil {
		t.Fatalf("LoadTemplate(custom) error: %v", err)
	}
	if shell != "<table>{{VIDEO_TABLE_ROWS}}</table>" {
		t.Errorf("custom shell = %q", shell)
	}

	broken := filepath.Join(dir, "broken.html")
	if err := os.WriteFile(broken, []byte("<p>no rows</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplate(broken); err == nil {
		t.Error("expected error for template without rows placeholder")
	}
	if _, err := LoadTemplate(filepath.Join(dir, "missing.html")); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestCustomTemplateRendering(t *testing.T) {
	env := newTestEnv(t)
	h := New(Config{MediaDir: env.root, Template: "<ol>{{VIDEO_TABLE_ROWS}}</ol>"}, env.trans)

	req := httptestRequest(http.MethodGet, "/?dir=cam1")
	rec := serve(h.Router(), req)

	body := rec.Body.String()
	if !strings.HasPrefix(body, "<ol><tr") || !strings.HasSuffix(body, "</ol>") {
		t.Errorf("custom shell not used: %q", body)
	}
}
