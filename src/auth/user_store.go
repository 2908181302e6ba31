package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserStore manages secure storage of user credentials
type UserStore struct {
	filePath string       // Path to the storage file
	users    []User       // In-memory cache of users
	mu       sync.RWMutex // Mutex for thread safety
	dirty    bool         // Whether the store has unsaved changes
	logger   *zap.SugaredLogger
}

// NewUserStore opens (or creates) the credential file at filePath.
func NewUserStore(filePath string, logger *zap.SugaredLogger) (*UserStore, error) {
	s := &UserStore{filePath: filePath, logger: logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// GetUser retrieves a user by username
func (s *UserStore) GetUser(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, storedUser := range s.users {
		if storedUser.Username == username {
			u := storedUser
			// Don't include password material
			u.PasswordHash = PasswordHash{}
			return &u, nil
		}
	}

	return nil, ErrUserNotFound
}

// ListUsers returns a list of all usernames
func (s *UserStore) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usernames := make([]string, len(s.users))
	for i, user := range s.users {
		usernames[i] = user.Username
	}

	return usernames
}

// AddUser adds a new user to the store
func (s *UserStore) AddUser(user NewUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existingUser := range s.users {
		if existingUser.Username == user.Username {
			return errors.New("username already exists")
		}
	}

	hash, err := hashPassword(user.Password)
	if err != nil {
		return err
	}

	storedUser := User{
		ID:             primitive.NewObjectID(),
		Username:       user.Username,
		PasswordHash:   hash,
		RoleIDs:        user.RoleIDs,
		SuperAdmin:     user.SuperAdmin,
		CreatedAt:      time.Now(),
		LastModifiedAt: time.Now(),
	}

	s.users = append(s.users, storedUser)
	s.dirty = true

	return s.save()
}

// UpdateUser replaces an existing user's password and roles
func (s *UserStore) UpdateUser(updatedUser NewUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existingUser := range s.users {
		if existingUser.Username == updatedUser.Username {
			hash, err := hashPassword(updatedUser.Password)
			if err != nil {
				return err
			}
			s.users[i].PasswordHash = hash
			s.users[i].RoleIDs = updatedUser.RoleIDs
			s.users[i].SuperAdmin = updatedUser.SuperAdmin
			s.users[i].LastModifiedAt = time.Now()
			s.dirty = true

			return s.save()
		}
	}

	return ErrUserNotFound
}

// RemoveUser removes a user from the store
func (s *UserStore) RemoveUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existingUser := range s.users {
		if existingUser.Username == username {
			s.users = append(s.users[:i], s.users[i+1:]...)
			s.dirty = true

			return s.save()
		}
	}

	return ErrUserNotFound
}

// Authenticate checks credentials and returns the stored user.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, storedUser := range s.users {
		if storedUser.Username != username {
			continue
		}
		if !verifyPassword(password, storedUser.PasswordHash) {
			return nil, errors.New("invalid credentials")
		}
		u := storedUser
		return &u, nil
	}

	return nil, ErrUserNotFound
}

func (s *UserStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading user store %s: %w", s.filePath, err)
	}
	if err := json.Unmarshal(data, &s.users); err != nil {
		return fmt.Errorf("parsing user store %s: %w", s.filePath, err)
	}
	s.logger.Infof("Loaded %d users from %s", len(s.users), s.filePath)
	return nil
}

// save persists the store; callers hold the write lock.
func (s *UserStore) save() error {
	if !s.dirty {
		return nil
	}
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user store: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing user store %s: %w", s.filePath, err)
	}
	s.dirty = false
	return nil
}
