package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/tryon/internal/model"
	"github.com/erazemk/tryon/internal/session"
	webembed "github.com/erazemk/tryon/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// imageSrc admits the two image sources items can carry: inline data URLs
// and bundled assets. html/template would otherwise rewrite data URLs to
// "#ZgotmplZ".
func imageSrc(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"), strings.HasPrefix(src, "/static/"):
		return template.URL(src)
	default:
		return template.URL(model.PlaceholderImage)
	}
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"imageSrc": imageSrc,
		"hasTag": func(tags model.TagSet, t model.Tag) bool {
			return tags.Has(t)
		},
		"categories": func() []model.Category { return model.Categories },
		"tags":       func() []model.Tag { return model.Tags },
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	// Read layout.
	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"closet.html",
		"soon.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code. The page is
// buffered so a failing template never produces half a page.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write page", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title  string
	User   *model.User
	Nav    []NavLink
	Return string
	Error  string
}

// Options configure the web front end.
type Options struct {
	// Provider is the identity provider offered on the login page.
	Provider string
	// CallbackURL is where the account service returns after sign-in.
	CallbackURL string
	// SecureCookies marks cookies Secure; set when served over HTTPS.
	SecureCookies bool
}

// Server holds all dependencies for page handlers.
type Server struct {
	Sessions  *session.Manager
	Templates *Templates
	Options   Options
}

// page builds the shell data for an authenticated request.
func (s *Server) page(r *http.Request, title string) PageData {
	pd := PageData{
		Title:  title,
		Nav:    navLinks(r.URL.Path),
		Return: r.URL.RequestURI(),
	}
	if sess := GetWebSession(r.Context()); sess != nil {
		u := sess.User()
		pd.User = &u
	}
	return pd
}
