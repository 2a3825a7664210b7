// Package auth holds the cookie session manager and password hashing
// helpers.
package auth

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"analogs/internal/models"
)

const sessionCookie = "analogs_session"

type Manager struct {
	db     *sql.DB
	maxAge time.Duration
}

func NewManager(db *sql.DB, maxAge time.Duration) *Manager {
	return &Manager{db: db, maxAge: maxAge}
}

// Create starts a fresh session for userID. Any prior sessions for the
// user are removed first, so a login invalidates older tokens.
func (m *Manager) Create(w http.ResponseWriter, userID int64) error {
	_, _ = m.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)

	id := uuid.New().String()
	expires := time.Now().Add(m.maxAge)

	_, err := m.db.Exec(`INSERT INTO sessions(id,user_id,expires_at) VALUES(?,?,?)`, id, userID, expires)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

// Destroy clears the client's session regardless of prior state.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(sessionCookie)
	if c != nil && c.Value != "" {
		m.db.Exec(`DELETE FROM sessions WHERE id = ?`, c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// CurrentUser resolves the request's session token to a user record.
// Missing cookies, unknown or expired tokens, and tokens whose user row
// has since disappeared all resolve to (nil, false) — never an error.
func (m *Manager) CurrentUser(r *http.Request) (*models.User, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	var u models.User
	var exp time.Time
	err = m.db.QueryRow(`SELECT u.id, u.username, u.password, u.profile_picture, s.expires_at
		FROM sessions s JOIN user u ON u.id = s.user_id WHERE s.id = ?`, c.Value).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.ProfilePicture, &exp)
	if err != nil || time.Now().After(exp) {
		return nil, false
	}
	return &u, true
}

// --- password helpers (bcrypt) ---

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
