package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/jo-hoe/snowlabel/internal/backend/blobstore"
	"github.com/jo-hoe/snowlabel/internal/backend/database"
	"github.com/jo-hoe/snowlabel/internal/backend/session"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so login failures cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidLabel is returned for any label outside the two terminal values.
	ErrInvalidLabel = errors.New("invalid label")
)

// CoreService owns the record store, blob store and session store. It is
// constructed once in main and handed to the HTTP services; there are no
// package-level singletons.
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	blobStore       *blobstore.BlobStore
	sessions        session.Store
}

func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)

	blobStore, err := blobstore.NewBlobStore(config.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	slog.Info("blob store initialized successfully", "root", blobStore.Root())

	sessions := session.NewRedisStore(config.Session.RedisAddr, config.Session.TTL)

	return &CoreService{
		config:          config,
		databaseService: databaseService,
		blobStore:       blobStore,
		sessions:        sessions,
	}, nil
}

// NewCoreServiceWithStores wires explicit store implementations, used by tests.
func NewCoreServiceWithStores(config *ServiceConfig, databaseService database.DatabaseService, blobStore *blobstore.BlobStore, sessions session.Store) *CoreService {
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		blobStore:       blobStore,
		sessions:        sessions,
	}
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Sessions() session.Store {
	return service.sessions
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

// CreateAccount provisions an operator account. It is only reachable through
// the createadmin command, never over the network.
func (service *CoreService) CreateAccount(username, password string) (*database.Account, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account, err := service.databaseService.CreateAccount(username, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// Authenticate verifies an operator login. Unknown usernames and wrong
// passwords both map to ErrInvalidCredentials.
func (service *CoreService) Authenticate(username, password string) (*database.Account, error) {
	account, err := service.databaseService.GetAccountByUsername(username)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates and establishes a session, returning the raw token.
func (service *CoreService) Login(ctx context.Context, username, password string) (string, error) {
	account, err := service.Authenticate(username, password)
	if err != nil {
		return "", err
	}
	token, err := service.sessions.Create(ctx, account.ID)
	if err != nil {
		return "", fmt.Errorf("failed to establish session: %w", err)
	}
	slog.Info("operator logged in", "username", account.Username)
	return token, nil
}

func (service *CoreService) Logout(ctx context.Context, token string) error {
	return service.sessions.Delete(ctx, token)
}

// StoreUpload sanitizes the filename, writes the blob and inserts the record.
// The two writes are not atomic; if the insert fails the blob stays behind.
func (service *CoreService) StoreUpload(filename, deviceID string, data []byte) (*database.ImageRecord, error) {
	name, err := blobstore.SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}
	if err := service.blobStore.Write(name, data); err != nil {
		return nil, err
	}
	record, err := service.databaseService.CreateImage(name, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to record upload %s: %w", name, err)
	}
	slog.Info("image stored", "filename", name, "device_id", record.DeviceID, "image_id", record.ID)
	return record, nil
}

// NextUnlabeled returns the oldest image still awaiting a label, or
// database.ErrNotFound when labeling is complete.
func (service *CoreService) NextUnlabeled() (*database.ImageRecord, error) {
	return service.databaseService.FirstUnlabeledImage()
}

// LabelImage assigns a terminal label. Relabeling an already-labeled image
// overwrites the previous value; concurrent calls are last write wins.
func (service *CoreService) LabelImage(id int64, label string) error {
	if !database.TerminalLabel(label) {
		return ErrInvalidLabel
	}
	if _, err := service.databaseService.GetImageByID(id); err != nil {
		return err
	}
	if err := service.databaseService.SetImageLabel(id, label); err != nil {
		return err
	}
	slog.Info("image labeled", "image_id", id, "label", label)
	return nil
}

func (service *CoreService) ImageByID(id int64) (*database.ImageRecord, error) {
	return service.databaseService.GetImageByID(id)
}

func (service *CoreService) ImageBytes(filename string) ([]byte, error) {
	return service.blobStore.Read(filename)
}

func (service *CoreService) UnlabeledCount() (int, error) {
	return service.databaseService.CountImagesByLabel(database.LabelUnlabeled)
}
