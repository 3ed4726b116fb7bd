package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+\-]+$`)

const (
	minUsernameLen = 2
	maxUsernameLen = 150
	minPasswordLen = 8
)

// UserService loads and registers accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ByUsername loads the user with the given username.
func (s *UserService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user %q", username)
	}
	return &user, nil
}

// ByID loads the user with the given id.
func (s *UserService) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return &user, nil
}

// Register creates an account. It returns a *ValidationError for malformed input and
// ErrConflict when the username is taken.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	verr := &ValidationError{}
	switch {
	case username == "":
		verr.Add("username", msgRequired)
	case utf8.RuneCountInString(username) < minUsernameLen:
		verr.Add("username", fmt.Sprintf("Ensure this value has at least %d characters.", minUsernameLen))
	case utf8.RuneCountInString(username) > maxUsernameLen:
		verr.Add("username", fmt.Sprintf("Ensure this value has at most %d characters.", maxUsernameLen))
	case !usernamePattern.MatchString(username):
		verr.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	switch {
	case password == "":
		verr.Add("password", msgRequired)
	case len(password) < minPasswordLen:
		verr.Add("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLen))
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if _, err := s.ByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username %q: %w", username, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: username, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
