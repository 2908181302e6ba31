package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/argon2"

	"docbase/src/permissions"
)

type PasswordHash struct {
	Hash    []byte `json:"hash"`
	Salt    []byte `json:"salt"`
	Method  string `json:"method"`  // "argon2id"
	Time    uint32 `json:"time"`    // time parameter for Argon2
	Memory  uint32 `json:"memory"`  // memory parameter in KiB
	Threads uint8  `json:"threads"` // threads parameter
	KeyLen  uint32 `json:"keylen"`  // length of the hash in bytes
}

type User struct {
	ID             primitive.ObjectID   `json:"id"`
	Username       string               `json:"username"`
	PasswordHash   PasswordHash         `json:"passwordHash"`
	RoleIDs        []primitive.ObjectID `json:"roleIds"`
	SuperAdmin     bool                 `json:"superAdmin"`
	CreatedAt      time.Time            `json:"createdAt"`
	LastModifiedAt time.Time            `json:"lastModifiedAt"`
}

type NewUser struct {
	Username   string
	Password   string
	RoleIDs    []primitive.ObjectID
	SuperAdmin bool
}

var ErrUserNotFound = errors.New("user not found")

// Permissions maps a stored user to the identity shape the permission
// resolver consumes.
func (u *User) Permissions() permissions.User {
	return permissions.User{
		ID:         u.ID,
		RoleIDs:    u.RoleIDs,
		SuperAdmin: u.SuperAdmin,
	}
}

// hashPassword hashes a password using Argon2id.
// Parameters recommended by OWASP:
// - Time: 1
// - Memory: 64 * 1024 (64 MB)
// - Threads: 4
// - Key length: 32 bytes
func hashPassword(password string) (PasswordHash, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return PasswordHash{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	timeParam := uint32(1)
	memory := uint32(64 * 1024)
	threads := uint8(4)
	keyLen := uint32(32)
	hash := argon2.IDKey([]byte(password), salt, timeParam, memory, threads, keyLen)

	return PasswordHash{
		Hash:    hash,
		Salt:    salt,
		Method:  "argon2id",
		Time:    timeParam,
		Memory:  memory,
		Threads: threads,
		KeyLen:  keyLen,
	}, nil
}

// verifyPassword re-derives the key and compares in constant time.
func verifyPassword(password string, stored PasswordHash) bool {
	derived := argon2.IDKey([]byte(password), stored.Salt,
		stored.Time, stored.Memory, stored.Threads, stored.KeyLen)
	return subtle.ConstantTimeCompare(derived, stored.Hash) == 1
}
