package repository

import (
	"context"
	"time"
)

// Entry es una entrada del vault. Password está cifrado (o es texto plano
// heredado).
type Entry struct {
	ID            string
	Username      string // dueño / partición
	Name          string
	LoginUsername string
	Password      string
	URL           string
	Notes         string
	Folder        *string
	CreatedAt     time.Time
}

// EntryRepository es el slice de lectura que consume el plugin.
type EntryRepository interface {
	ListByUser(ctx context.Context, username string) ([]Entry, error)
}
