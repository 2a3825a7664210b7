package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/charmbracelet/log"

	"analogs/internal/auth"
	"analogs/internal/models"
)

type Handler struct {
	db        *sql.DB
	sessions  *auth.Manager
	logger    *log.Logger
	tpls      *template.Template
	uploadDir string
}

// New parses the template set from tplDir and bundles everything the
// resource handlers need.
func New(db *sql.DB, sessions *auth.Manager, logger *log.Logger, tplDir, uploadDir string) *Handler {
	tpls := template.Must(template.ParseGlob(filepath.Join(tplDir, "*.html")))
	return &Handler{db: db, sessions: sessions, logger: logger, tpls: tpls, uploadDir: uploadDir}
}

// Router wires every route behind the per-request identity resolver.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", h.Index)
	mux.HandleFunc("GET /{id}", h.Detail)
	mux.HandleFunc("GET /create", h.CreateAnalysis)
	mux.HandleFunc("POST /create", h.CreateAnalysis)
	mux.HandleFunc("/{id}/update", h.UpdateAnalysis)
	mux.HandleFunc("POST /{id}/delete", h.DeleteAnalysis)

	mux.HandleFunc("/auth/register", h.Register)
	mux.HandleFunc("/auth/login", h.Login)
	mux.HandleFunc("GET /auth/logout", h.Logout)

	mux.HandleFunc("POST /comment/create", h.CreateComment)
	mux.HandleFunc("GET /comment/list/{analysisID}", h.ListComments)

	mux.HandleFunc("/profile/{$}", h.Profile)

	return h.WithUser(mux)
}

// --- request identity ---

type ctxKey int

const userKey ctxKey = 0

// WithUser resolves the session token once per request and attaches the
// user (or nil for anonymous) to the request context. Handlers read it
// back with currentUser.
func (h *Handler) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := h.sessions.CurrentUser(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userKey, u))
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

// --- authorization gate ---

type decision int

const (
	allowed decision = iota
	unauthenticated
	forbidden
)

// authenticate admits any logged-in user.
func authenticate(u *models.User) decision {
	if u == nil {
		return unauthenticated
	}
	return allowed
}

// authorize admits only the owner of the target record.
func authorize(u *models.User, authorID int64) decision {
	if u == nil {
		return unauthenticated
	}
	if u.ID != authorID {
		return forbidden
	}
	return allowed
}

// deny terminates a request for a non-allowed decision: unauthenticated
// clients go to the login form, everyone else gets a hard 403.
func (h *Handler) deny(w http.ResponseWriter, r *http.Request, d decision) {
	if d == unauthenticated {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// --- flash messages ---

const flashCookie = "analogs_flash"

// flash stores a one-shot message for the next rendered page. The value
// is base64-encoded so arbitrary message text survives cookie encoding.
func flash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.URLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		HttpOnly: true,
	})
}

// popFlash consumes the pending flash message, clearing the cookie.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	msg, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

// --- rendering ---

// render executes the named template with the ambient keys (current
// user, pending flash) merged into data. A "Flash" already present in
// data wins over the cookie, so validation errors show up on the same
// response that re-renders the form.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["User"] = currentUser(r)
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = popFlash(w, r)
	}
	if err := h.tpls.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template render failed", "template", name, "err", err)
	}
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Title": "Not Found", "User": currentUser(r), "Flash": popFlash(w, r)}
	w.WriteHeader(http.StatusNotFound)
	if err := h.tpls.ExecuteTemplate(w, "notfound", data); err != nil {
		h.logger.Error("template render failed", "template", "notfound", "err", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("store error", "err", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
