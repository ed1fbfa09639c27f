package database

import "time"

const (
	LabelUnlabeled = "unlabeled"
	LabelSnowy     = "snowy"
	LabelNotSnowy  = "not_snowy"

	// DefaultDeviceID is recorded when an upload carries no device identifier.
	DefaultDeviceID = "unknown"
)

// TerminalLabel reports whether label is a value the labeling workflow may
// assign. The default "unlabeled" is never a valid assignment target.
func TerminalLabel(label string) bool {
	return label == LabelSnowy || label == LabelNotSnowy
}

type Account struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type ImageRecord struct {
	ID        int64     `db:"id"`
	Filename  string    `db:"filename"`
	DeviceID  string    `db:"device_id"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}
