package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CreateComment accepts a comment from anyone: logged-in users are
// recorded as the author, everyone else comments anonymously.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	analysisID, err := strconv.ParseInt(r.FormValue("analysis_id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	var exists int64
	err = h.db.QueryRow(`SELECT id FROM analysis WHERE id = ?`, analysisID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, err)
		return
	}

	detailURL := "/" + strconv.FormatInt(analysisID, 10)

	body := strings.TrimSpace(r.FormValue("body"))
	if body == "" {
		flash(w, "Comment cannot be empty.")
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}

	var authorID sql.NullInt64
	if u := currentUser(r); u != nil {
		authorID = sql.NullInt64{Int64: u.ID, Valid: true}
	}

	_, err = h.db.Exec(`INSERT INTO comment(analysis_id,author_id,body,created) VALUES(?,?,?,?)`,
		analysisID, authorID, body, time.Now())
	if err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, detailURL, http.StatusSeeOther)
}

// ListComments returns the comments for an analysis as JSON,
// newest-first. Anonymous comments carry a null author.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	analysisID, err := strconv.ParseInt(r.PathValue("analysisID"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	rows, err := h.db.Query(`SELECT c.id, c.body, c.created, u.username
		FROM comment c LEFT JOIN user u ON c.author_id = u.id
		WHERE c.analysis_id = ? ORDER BY c.created DESC, c.id DESC`, analysisID)
	if err != nil {
		h.serverError(w, err)
		return
	}
	defer rows.Close()

	type commentVM struct {
		ID      int64     `json:"id"`
		Body    string    `json:"body"`
		Created time.Time `json:"created"`
		Author  *string   `json:"author"`
	}
	comments := []commentVM{}
	for rows.Next() {
		var c commentVM
		var author sql.NullString
		if err := rows.Scan(&c.ID, &c.Body, &c.Created, &author); err != nil {
			h.serverError(w, err)
			return
		}
		if author.Valid {
			c.Author = &author.String
		}
		comments = append(comments, c)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(comments); err != nil {
		h.logger.Error("encoding comments failed", "err", err)
	}
}
