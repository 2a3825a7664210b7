package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"analogs/internal/auth"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "register", map[string]any{"Title": "Register"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	pass := r.FormValue("password")

	if msg := requireFields(field{"Username", username}, field{"Password", pass}); msg != "" {
		h.render(w, r, "register", map[string]any{"Title": "Register", "Flash": msg})
		return
	}

	hash, err := auth.HashPassword(pass)
	if err != nil {
		h.serverError(w, err)
		return
	}

	_, err = h.db.Exec(`INSERT INTO user(username,password) VALUES(?,?)`, username, hash)
	if err != nil {
		// UNIQUE violation on username; surfaced as a message, not a crash.
		h.render(w, r, "register", map[string]any{
			"Title": "Register",
			"Flash": fmt.Sprintf("User %s is already registered.", username),
		})
		return
	}

	// No auto-login after registration.
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "login", map[string]any{"Title": "Log In"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	pass := r.FormValue("password")

	var id int64
	var hash string
	err := h.db.QueryRow(`SELECT id, password FROM user WHERE username = ?`, username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !auth.CheckPassword(pass, hash)) {
		// Same message for unknown user and wrong password, so the form
		// cannot be used to enumerate usernames.
		h.render(w, r, "login", map[string]any{"Title": "Log In", "Flash": "Incorrect username or password."})
		return
	} else if err != nil {
		h.serverError(w, err)
		return
	}

	if err := h.sessions.Create(w, id); err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- field validation ---

type field struct {
	Name  string
	Value string
}

// requireFields reports the first missing field as a user-facing
// message, or "" when all are present.
func requireFields(fields ...field) string {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			return f.Name + " is required."
		}
	}
	return ""
}
