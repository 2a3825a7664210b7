package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"analogs/internal/models"
)

// Index lists every analysis newest-first with its author's username.
// Full scan, no pagination.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`SELECT a.id, a.song_title, a.artist, a.body, a.created, a.author_id, u.username
		FROM analysis a JOIN user u ON a.author_id = u.id
		ORDER BY a.created DESC, a.id DESC`)
	if err != nil {
		h.serverError(w, err)
		return
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		var a models.Analysis
		if err := rows.Scan(&a.ID, &a.SongTitle, &a.Artist, &a.Body, &a.Created, &a.AuthorID, &a.Author); err != nil {
			h.serverError(w, err)
			return
		}
		analyses = append(analyses, a)
	}

	h.render(w, r, "index", map[string]any{
		"Title":    "Analogs",
		"Analyses": analyses,
	})
}

// getAnalysis fetches one analysis joined with its author's username.
// Returns sql.ErrNoRows when the id does not exist.
func (h *Handler) getAnalysis(id int64) (*models.Analysis, error) {
	var a models.Analysis
	err := h.db.QueryRow(`SELECT a.id, a.song_title, a.artist, a.body, a.created, a.author_id, u.username
		FROM analysis a JOIN user u ON a.author_id = u.id WHERE a.id = ?`, id).
		Scan(&a.ID, &a.SongTitle, &a.Artist, &a.Body, &a.Created, &a.AuthorID, &a.Author)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Detail shows one analysis with its comments oldest-first. Publicly
// readable, no ownership check.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	a, err := h.getAnalysis(id)
	if errors.Is(err, sql.ErrNoRows) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, err)
		return
	}

	rows, err := h.db.Query(`SELECT c.id, c.analysis_id, c.author_id, c.body, c.created, u.username
		FROM comment c LEFT JOIN user u ON c.author_id = u.id
		WHERE c.analysis_id = ? ORDER BY c.created ASC, c.id ASC`, id)
	if err != nil {
		h.serverError(w, err)
		return
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.AnalysisID, &c.AuthorID, &c.Body, &c.Created, &c.Author); err != nil {
			h.serverError(w, err)
			return
		}
		comments = append(comments, c)
	}

	h.render(w, r, "detail", map[string]any{
		"Title":    a.SongTitle,
		"Analysis": a,
		"Comments": comments,
	})
}

func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if d := authenticate(u); d != allowed {
		h.deny(w, r, d)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "create", map[string]any{"Title": "New Analysis"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	songTitle := strings.TrimSpace(r.FormValue("song_title"))
	artist := strings.TrimSpace(r.FormValue("artist"))
	body := strings.TrimSpace(r.FormValue("body"))

	if msg := requireFields(field{"Song title", songTitle}, field{"Artist", artist}, field{"Body", body}); msg != "" {
		h.render(w, r, "create", map[string]any{"Title": "New Analysis", "Flash": msg})
		return
	}

	_, err := h.db.Exec(`INSERT INTO analysis(song_title,artist,body,created,author_id) VALUES(?,?,?,?,?)`,
		songTitle, artist, body, time.Now(), u.ID)
	if err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) UpdateAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	a, err := h.getAnalysis(id)
	if errors.Is(err, sql.ErrNoRows) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, err)
		return
	}

	if d := authorize(currentUser(r), a.AuthorID); d != allowed {
		h.deny(w, r, d)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, "update", map[string]any{"Title": "Edit Analysis", "Analysis": a})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	songTitle := strings.TrimSpace(r.FormValue("song_title"))
	artist := strings.TrimSpace(r.FormValue("artist"))
	body := strings.TrimSpace(r.FormValue("body"))

	if msg := requireFields(field{"Song title", songTitle}, field{"Artist", artist}, field{"Body", body}); msg != "" {
		h.render(w, r, "update", map[string]any{"Title": "Edit Analysis", "Analysis": a, "Flash": msg})
		return
	}

	// id and created are immutable; only the text fields change.
	_, err = h.db.Exec(`UPDATE analysis SET song_title = ?, artist = ?, body = ? WHERE id = ?`,
		songTitle, artist, body, id)
	if err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	a, err := h.getAnalysis(id)
	if errors.Is(err, sql.ErrNoRows) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, err)
		return
	}

	if d := authorize(currentUser(r), a.AuthorID); d != allowed {
		h.deny(w, r, d)
		return
	}

	// Comments go with the analysis via ON DELETE CASCADE.
	if _, err := h.db.Exec(`DELETE FROM analysis WHERE id = ?`, id); err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
