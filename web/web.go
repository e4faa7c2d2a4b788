// Package web holds the embedded HTML templates and static assets, and the
// gin renderer that executes each page inside the shared layout.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin/render"

	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/normalize"
	"github.com/use-agent/imageboard/session"
	"github.com/use-agent/imageboard/thread"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Pages lists every page template. Each is parsed together with the layout.
var Pages = []string{"home", "posts", "post", "post_form", "login", "register", "not_found", "error"}

// Renderer implements render.HTMLRender over the embedded templates.
type Renderer struct {
	templates map[string]*template.Template
}

// New parses every page with the layout and the shared partials.
func New() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(Pages))}
	for _, name := range Pages {
		t, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Instance returns the renderer for page name.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.templates[name]
	if !ok {
		return missing(name)
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

type missing string

func (m missing) Render(http.ResponseWriter) error {
	return fmt.Errorf("web: unknown page %q", string(m))
}

func (m missing) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

// Static serves the embedded assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"dict":       dict,
		"add":        func(a, b int) int { return a + b },
		"heroURL":    normalize.HeroURL,
		"slideURL":   normalize.SlideURL,
		"thumbURL":   func(img models.Image) string { return normalize.SlideURL(&img) },
		"imageID":    imageID,
		"authorName": authorName,
		"authorID":   authorID,
		"isDeleted":  thread.IsSoftDeleted,
		"isOwner":    isOwner,
	}
}

func authorName(c *models.Comment) string {
	name, _ := thread.AuthorLabel(c)
	return name
}

// authorID is only set when the comment carries no name or email.
func authorID(c *models.Comment) int64 {
	_, id := thread.AuthorLabel(c)
	return id
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func imageID(img *models.Image) int64 {
	if img == nil || img.ID == nil {
		return 0
	}
	return *img.ID
}

func isOwner(c *models.Comment, s *session.Session) bool {
	if s == nil {
		return false
	}
	return thread.IsOwner(c, s.UserID)
}
