package handlers

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"analogs/internal/auth"
)

var allowedExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

// Profile lets a logged-in user change their username, password, and
// avatar. The submission is all-or-nothing: every input is validated
// before anything is written, and the writes run in one transaction.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if d := authenticate(u); d != allowed {
		h.deny(w, r, d)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "profile", map[string]any{"Title": "Profile"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.render(w, r, "profile", map[string]any{"Title": "Profile", "Flash": "Could not read the submitted form."})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" {
		h.render(w, r, "profile", map[string]any{"Title": "Profile", "Flash": "Username is required."})
		return
	}

	file, header, err := r.FormFile("profile_picture")
	hasFile := err == nil && header.Filename != ""
	if hasFile {
		defer file.Close()
	}

	var filename string
	if hasFile {
		filename = sanitizeFilename(header.Filename)
		if filename == "" || !allowedExtensions[extension(filename)] {
			h.render(w, r, "profile", map[string]any{
				"Title": "Profile",
				"Flash": "File type not allowed. Please upload a PNG, JPG, JPEG, or GIF.",
			})
			return
		}
	}

	tx, err := h.db.Begin()
	if err != nil {
		h.serverError(w, err)
		return
	}
	defer tx.Rollback()

	if username != u.Username {
		if _, err := tx.Exec(`UPDATE user SET username = ? WHERE id = ?`, username, u.ID); err != nil {
			h.render(w, r, "profile", map[string]any{"Title": "Profile", "Flash": "That username is already taken."})
			return
		}
	}

	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			h.serverError(w, err)
			return
		}
		if _, err := tx.Exec(`UPDATE user SET password = ? WHERE id = ?`, hash, u.ID); err != nil {
			h.serverError(w, err)
			return
		}
	}

	if hasFile {
		if err := h.saveUpload(file, filename); err != nil {
			h.serverError(w, err)
			return
		}
		if _, err := tx.Exec(`UPDATE user SET profile_picture = ? WHERE id = ?`, filename, u.ID); err != nil {
			h.serverError(w, err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		h.serverError(w, err)
		return
	}

	flash(w, "Profile updated.")
	http.Redirect(w, r, "/profile/", http.StatusSeeOther)
}

func (h *Handler) saveUpload(src io.Reader, filename string) error {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(h.uploadDir, filename))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

var filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeFilename strips any directory components and characters that
// could smuggle a path, leaving a bare safe filename or "".
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = filenameSanitizer.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	return name
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
