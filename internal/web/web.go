// Package web renders the dashboard pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/dustin/go-humanize"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageHome         = "home"
	PageNotAdmin     = "not_admin"
	PageUsers        = "users"
	PageUser         = "user"
	PageApps         = "apps"
	PageApp          = "app"
	PageSpend        = "spend"
	PageTransactions = "transactions"
	PageError        = "error"
)

var pageNames = []string{
	PageHome, PageNotAdmin, PageUsers, PageUser, PageApps, PageApp,
	PageSpend, PageTransactions, PageError,
}

// pages rendered without the navigation bar
var bare = map[string]bool{PageHome: true, PageNotAdmin: true}

var funcs = template.FuncMap{
	"money": Money,
	"join":  strings.Join,
}

// Money formats an amount in dollars with thousands separators.
func Money(amount float64) string {
	if amount < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -amount)
	}
	return "$" + humanize.FormatFloat("#,###.##", amount)
}

type layoutData struct {
	Title    string
	AppTitle string
	Nav      bool
	Data     any
}

// Renderer executes the embedded page templates.
type Renderer struct {
	title string
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer(title string) (*Renderer, error) {
	r := &Renderer{title: title, pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page with data and status. The page is rendered to a buffer
// first so a template failure still yields a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, page, title string, data any) {
	t, ok := r.pages[page]
	if !ok {
		logger.Error("Unknown page", zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err := t.ExecuteTemplate(&buf, "layout", layoutData{
		Title:    title,
		AppTitle: r.title,
		Nav:      !bare[page],
		Data:     data,
	})
	if err != nil {
		logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("Failed to write page", zap.String("page", page), zap.Error(err))
	}
}

// ErrorData is the model of the error page.
type ErrorData struct {
	Heading string
	Message string
	Back    string
}

// Error renders the error card for status.
func (r *Renderer) Error(w http.ResponseWriter, _ *http.Request, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	r.Render(w, status, PageError, "Error", ErrorData{Heading: "Error", Message: msg})
}

// NotFound renders a not-found card with heading.
func (r *Renderer) NotFound(w http.ResponseWriter, heading, message, back string) {
	r.Render(w, http.StatusNotFound, PageError, heading, ErrorData{Heading: heading, Message: message, Back: back})
}

// Static serves the embedded stylesheet and assets under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

func provideRenderer(cfg *config.Config) (*Renderer, error) {
	return NewRenderer(cfg.Server.Title)
}

var Module = fx.Module("web", fx.Provide(provideRenderer))
