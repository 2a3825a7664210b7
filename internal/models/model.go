package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	ProfilePicture sql.NullString
}

type Analysis struct {
	ID        int64
	SongTitle string
	Artist    string
	Body      string
	Created   time.Time
	AuthorID  int64
	Author    string
}

// Anonymous comments have no author: AuthorID and Author are both NULL.
type Comment struct {
	ID         int64
	AnalysisID int64
	AuthorID   sql.NullInt64
	Body       string
	Created    time.Time
	Author     sql.NullString
}
