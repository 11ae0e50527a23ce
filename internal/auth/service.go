// Package auth handles account provisioning and bearer-token issuance.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/minicloud/service/internal/catalog"
)

const tokenTTL = 24 * time.Hour

// ErrInvalidCredentials is returned when the username or credential is wrong.
var ErrInvalidCredentials = errors.New("invalid username or credential")

// Service contains the business logic for authentication.
type Service struct {
	store     *catalog.Store
	jwtSecret string
}

// NewService creates an auth Service.
func NewService(store *catalog.Store, jwtSecret string) *Service {
	return &Service{store: store, jwtSecret: jwtSecret}
}

// Provision creates an account with a bcrypt-hashed credential and a
// freshly generated API key. Accounts are created out of band — there is
// no self-registration endpoint.
func (s *Service) Provision(username, credential string) (catalog.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return catalog.User{}, fmt.Errorf("hash credential: %w", err)
	}
	u, err := s.store.CreateUser(username, string(hash), uuid.NewString())
	if err != nil {
		return catalog.User{}, err
	}
	return u, nil
}

// Login exchanges a username and credential for a short-lived JWT.
func (s *Service) Login(username, credential string) (string, catalog.User, error) {
	u, ok := s.store.UserByUsername(username)
	if !ok {
		return "", catalog.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.CredentialHash), []byte(credential)); err != nil {
		return "", catalog.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", catalog.User{}, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// issueToken creates a signed HS256 JWT for the given user.
func (s *Service) issueToken(u catalog.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      strconv.Itoa(u.ID),
		"username": u.Username,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
