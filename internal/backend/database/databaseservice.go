package database

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	CreateAccount(username string, passwordHash []byte) (*Account, error)
	GetAccountByUsername(username string) (*Account, error)
	GetAccountByID(id int64) (*Account, error)

	CreateImage(filename, deviceID string) (*ImageRecord, error)
	GetImageByID(id int64) (*ImageRecord, error)
	// FirstUnlabeledImage returns the oldest image (primary-key order) still
	// carrying the default label, or ErrNotFound when labeling is complete.
	FirstUnlabeledImage() (*ImageRecord, error)
	CountImagesByLabel(label string) (int, error)
	// SetImageLabel overwrites the label of an existing image. Relabeling an
	// already-labeled image is permitted; ErrNotFound if the id is unknown.
	SetImageLabel(id int64, label string) error
}
