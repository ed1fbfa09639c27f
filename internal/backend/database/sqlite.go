package database

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// modernc.org/sqlite allows a single writer; a pool size of one also keeps
	// ":memory:" connections pointed at the same database.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		device_id TEXT NOT NULL DEFAULT 'unknown',
		label TEXT NOT NULL DEFAULT 'unlabeled',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_images_label ON images(label);
	CREATE INDEX IF NOT EXISTS idx_images_device_id ON images(device_id)`)
	if err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateAccount(username string, passwordHash []byte) (*Account, error) {
	account := &Account{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	result, err := s.db.Exec(
		"INSERT INTO accounts (username, password_hash, created_at) VALUES (?, ?, ?)",
		account.Username, account.PasswordHash, account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (s *SQLiteDatabase) GetAccountByUsername(username string) (*Account, error) {
	row := s.db.QueryRow(
		"SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	return scanAccount(row)
}

func (s *SQLiteDatabase) GetAccountByID(id int64) (*Account, error) {
	row := s.db.QueryRow(
		"SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?",
		id,
	)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*Account, error) {
	var account Account
	err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *SQLiteDatabase) CreateImage(filename, deviceID string) (*ImageRecord, error) {
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}
	record := &ImageRecord{
		Filename:  filename,
		DeviceID:  deviceID,
		Label:     LabelUnlabeled,
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.db.Exec(
		"INSERT INTO images (filename, device_id, label, created_at) VALUES (?, ?, ?, ?)",
		record.Filename, record.DeviceID, record.Label, record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *SQLiteDatabase) GetImageByID(id int64) (*ImageRecord, error) {
	row := s.db.QueryRow(
		"SELECT id, filename, device_id, label, created_at FROM images WHERE id = ?",
		id,
	)
	return scanImage(row)
}

func (s *SQLiteDatabase) FirstUnlabeledImage() (*ImageRecord, error) {
	row := s.db.QueryRow(
		"SELECT id, filename, device_id, label, created_at FROM images WHERE label = ? ORDER BY id LIMIT 1",
		LabelUnlabeled,
	)
	return scanImage(row)
}

func scanImage(row *sql.Row) (*ImageRecord, error) {
	var record ImageRecord
	err := row.Scan(&record.ID, &record.Filename, &record.DeviceID, &record.Label, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SQLiteDatabase) CountImagesByLabel(label string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM images WHERE label = ?", label).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteDatabase) SetImageLabel(id int64, label string) error {
	result, err := s.db.Exec("UPDATE images SET label = ? WHERE id = ?", label, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
