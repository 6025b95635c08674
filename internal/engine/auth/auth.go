package auth

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"taskline/internal/domain"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
// The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service checks the static credentials carried by every request.
type Service struct {
	DB *sql.DB
	// Cost is the bcrypt cost for new hashes. Zero means bcrypt.DefaultCost.
	Cost int
}

// HashPassword returns the bcrypt hash stored for a password.
func (s Service) HashPassword(password string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Authenticate resolves username to an account and checks password against
// its hash.
func (s Service) Authenticate(ctx context.Context, tx *sql.Tx, username, password string) (domain.Account, error) {
	if username == "" || password == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	var a domain.Account
	err := tx.QueryRowContext(ctx, `SELECT id,email,name,password_hash FROM users WHERE email=?`, username).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash)
	if err == sql.ErrNoRows {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}
	return a, nil
}
