package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/repository"
	"github.com/taskly/taskly-api/internal/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MaxUsernameLength = 50

// Usernames may not contain "@" so a login identifier can never match
// one user's username and another user's email.
const (
	usernameLengthRule = "max=50"
	usernameCharsRule  = "excludes=@"
	emailRule          = "email"
)

var validate = validator.New()

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTooLong      = fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	ErrUsernameInvalid      = errors.New("username must not contain @")
	ErrEmailRequired        = errors.New("email is required")
	ErrEmailInvalid         = errors.New("email is not a valid address")
	ErrPasswordRequired     = errors.New("password is required")
	ErrPasswordTooLong      = errors.New("password is too long")
	ErrEmailTaken           = errors.New("user with this email already exists")
	ErrUsernameTaken        = errors.New("user with this username already exists")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToIssueToken   = errors.New("failed to issue token")
)

// AuthService handles registration, login and session token verification.
type AuthService struct {
	userRepo   repository.UserRepository
	tokens     *token.Manager
	bcryptCost int
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *token.Manager) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput holds the credentials for authentication. Identifier may be
// either the username or the email address.
type LoginInput struct {
	Identifier string
	Password   string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string
	User  *models.User
}

// Register creates a new user and issues a session token for it.
func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case validate.Var(username, usernameLengthRule) != nil:
		return nil, ErrUsernameTooLong
	case validate.Var(username, usernameCharsRule) != nil:
		return nil, ErrUsernameInvalid
	case email == "":
		return nil, ErrEmailRequired
	case validate.Var(email, emailRule) != nil:
		return nil, ErrEmailInvalid
	case input.Password == "":
		return nil, ErrPasswordRequired
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user)
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// VerifyToken resolves a session token to the user id it is bound to.
// It returns token.ErrInvalidToken or token.ErrExpiredToken on failure.
func (s *AuthService) VerifyToken(raw string) (string, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	signed, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToIssueToken, err)
	}
	return &AuthResult{Token: signed, User: user}, nil
}
