package core

import (
	"fmt"

	"github.com/harshchoudhary100/my-chat-box/internal/auth"
	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

type UserService struct {
	dbStore    *store.SQLiteStore
	bcryptCost int
}

func NewUserService(db *store.SQLiteStore, bcryptCost int) *UserService {
	return &UserService{dbStore: db, bcryptCost: bcryptCost}
}

// Signup hashes the password and stores a new user. A registered email fails
// with ErrEmailTaken. The raw and hashed passwords never leave this layer.
func (s *UserService) Signup(name, email, password string) error {
	existing, err := s.dbStore.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return ErrEmailTaken
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.dbStore.CreateUser(name, email, hash); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Login checks the credentials and returns the owner id. Unknown email and
// wrong password both come back as ErrInvalidCredentials so the response
// never reveals which one it was.
func (s *UserService) Login(email, password string) (string, error) {
	user, err := s.dbStore.GetUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}
