package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/database"
)

const (
	keyPrefix    = "vsk_"
	sessionTTL   = 24 * time.Hour
	bcryptRounds = 12
)

var signingMethod = jwt.SigningMethodHS256

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

func masterSecret() []byte {
	return []byte(os.Getenv("API_MASTER_SECRET"))
}

// AdminClaims are the JWT claims issued to a logged-in admin.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptRounds)
	return string(hash), err
}

// CheckPasswordHash compares a password against its bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateToken issues a session token for an admin user.
func CreateToken(username string) (string, error) {
	claims := &AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(jwtSecret())
}

// VerifyToken parses and validates a session token.
func VerifyToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GenerateAPIKey mints a self-describing HMAC-signed key. The key carries
// its owner name in cleartext plus a signature, so verification needs no
// database lookup.
func GenerateAPIKey(owner string) string {
	return keyPrefix + owner + "." + signKey(owner)
}

// VerifyAPIKey validates a key's signature and returns the owner name.
func VerifyAPIKey(key string) (string, error) {
	body, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return "", errors.New("invalid key format")
	}
	owner, signature, ok := strings.Cut(body, ".")
	if !ok {
		return "", errors.New("invalid key format")
	}
	// Constant-time comparison to prevent timing attacks.
	if !hmac.Equal([]byte(signature), []byte(signKey(owner))) {
		return "", errors.New("invalid key signature")
	}
	return owner, nil
}

func signKey(owner string) string {
	mac := hmac.New(sha256.New, masterSecret())
	mac.Write([]byte(owner))
	return hex.EncodeToString(mac.Sum(nil))
}

// EnsureAdminExists seeds a default admin account from the environment
// when the users table is empty.
func EnsureAdminExists(db *gorm.DB) error {
	var count int64
	db.Model(&database.AdminUser{}).Count(&count)
	if count > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&database.AdminUser{
		Username:     username,
		PasswordHash: hash,
	}).Error
}
