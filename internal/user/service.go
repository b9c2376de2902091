package user

//go:generate mockgen -destination=../mocks/mock_user_store.go -package=mocks -mock_names=Store=MockUserStore github.com/ovaphlow/pitchfork/service-charging-go/internal/user Store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-charging-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

// PasswordCost is the bcrypt work factor used for every new hash.
const PasswordCost = 10

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 6

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^\s@\x00]+@[^\s@\x00]+\.[^\s@\x00]+$`)

// Store is the persistence contract of the credential store.
// Create returns userrepo.ErrDuplicateEmail on a unique violation; the
// getters return an error wrapping sql.ErrNoRows when nothing matches.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = PasswordCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// UserService registers users and checks their credentials.
type UserService struct {
	store  Store
	hasher PasswordHasher
	now    func() time.Time
}

func NewUserService(store Store, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: PasswordCost}
	}
	return &UserService{store: store, hasher: hasher, now: time.Now}
}

var (
	errEmailTaken         = apperr.Conflict("Email already registered")
	errBadCredentials     = apperr.Unauthorized("Invalid credentials")
	errMissingCredentials = apperr.InvalidInput("Email and password are required")
)

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user after validating the email shape and password
// length. A second registration of the same normalized email is a Conflict,
// whether it is caught by the lookup or by the unique index on insert.
func (s *UserService) Register(ctx context.Context, email, password string) (*entity.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errMissingCredentials
	}
	if !emailPattern.MatchString(email) {
		return nil, apperr.InvalidInput("Invalid email format")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperr.InvalidInput(fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return nil, apperr.InvalidInput(fmt.Sprintf("Password cannot exceed %d bytes", MaxPasswordBytes))
	}

	existing, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, errEmailTaken
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, apperr.Internal(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := s.now().UTC()
	u := &entity.User{
		ID:           utilities.NewKSUID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, errEmailTaken
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Verify checks an email/password pair. Unknown emails and wrong passwords
// fail with the same Unauthorized error.
func (s *UserService) Verify(ctx context.Context, email, password string) (*entity.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errMissingCredentials
	}
	if !emailPattern.MatchString(email) {
		return nil, errBadCredentials
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBadCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, errBadCredentials
	}
	return u, nil
}

// GetByID returns the public projection of a user.
func (s *UserService) GetByID(ctx context.Context, id string) (*entity.PublicView, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal(err)
	}
	v := u.Public()
	return &v, nil
}
