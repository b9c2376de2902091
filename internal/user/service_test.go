package user_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/mocks"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-charging-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

var fastHasher = user.BcryptHasher{Cost: bcrypt.MinCost}

func notFound() error { return pkgerrors.Wrap(sql.ErrNoRows, "get user by email") }

func TestUserService_Register_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockUserStore(ctrl)
	s := user.NewUserService(store, fastHasher)

	var saved *entity.User
	store.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, notFound())
	store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *entity.User) error {
		saved = u
		return nil
	})

	u, err := s.Register(context.Background(), "  Alice@Example.COM ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, utilities.IsKSUID(u.ID))
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, fastHasher.Verify(u.PasswordHash, "secret1"))
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	assert.Same(t, saved, u)
}

func TestUserService_Register_InvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := user.NewUserService(mocks.NewMockUserStore(ctrl), fastHasher)

	tests := []struct {
		name     string
		email    string
		password string
		msg      string
	}{
		{"missing email", "", "secret1", "Email and password are required"},
		{"blank email", "   ", "secret1", "Email and password are required"},
		{"missing password", "a@example.com", "", "Email and password are required"},
		{"no at sign", "alice.example.com", "secret1", "Invalid email format"},
		{"no dot in domain", "alice@example", "secret1", "Invalid email format"},
		{"inner space", "al ice@example.com", "secret1", "Invalid email format"},
		{"short password", "a@example.com", "12345", "Password must be at least 6 characters long"},
		{"short multibyte password", "carol@example.com", "ééé", "Password must be at least 6 characters long"},
		{"password over bcrypt limit", "bob@example.com", strings.Repeat("a", 73), "Password cannot exceed 72 bytes"},
		{"nul in email", "al\x00ice@example.com", "secret1", "Invalid email format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindInvalidInput, e.Kind)
			assert.Equal(t, tt.msg, e.Message)
		})
	}
}

func TestUserService_Register_EmailAlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockUserStore(ctrl)
	s := user.NewUserService(store, fastHasher)

	store.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").
		Return(&entity.User{ID: "existing", Email: "alice@example.com"}, nil)

	u, err := s.Register(context.Background(), "ALICE@example.com", "secret1")
	assert.Nil(t, u)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUserService_Register_UniqueViolationIsConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockUserStore(ctrl)
	s := user.NewUserService(store, fastHasher)

	// lost the race: the lookup saw nothing, the index rejected the insert
	store.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, notFound())
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(userrepo.ErrDuplicateEmail)

	_, err := s.Register(context.Background(), "alice@example.com", "secret1")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, "Email already registered", e.Message)
}

func TestUserService_Register_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockUserStore(ctrl)
	s := user.NewUserService(store, fastHasher)

	store.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := s.Register(context.Background(), "alice@example.com", "secret1")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestUserService_Verify(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hash, err := fastHasher.Hash("secret1")
	require.NoError(t, err)
	stored := &entity.User{ID: utilities.NewKSUID(), Email: "alice@example.com", PasswordHash: hash}

	store := mocks.NewMockUserStore(ctrl)
	store.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(stored, nil).Times(2)
	store.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, notFound())
	s := user.NewUserService(store, fastHasher)

	t.Run("valid pair", func(t *testing.T) {
		u, err := s.Verify(context.Background(), " Alice@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, u.ID)
	})

	var wrongPw, unknown error
	t.Run("wrong password", func(t *testing.T) {
		_, wrongPw = s.Verify(context.Background(), "alice@example.com", "secret2")
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(wrongPw))
	})
	t.Run("unknown email", func(t *testing.T) {
		_, unknown = s.Verify(context.Background(), "nobody@example.com", "secret1")
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(unknown))
	})
	assert.Equal(t, wrongPw.Error(), unknown.Error(), "failures must be indistinguishable")
}

func TestUserService_Verify_MissingFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := user.NewUserService(mocks.NewMockUserStore(ctrl), fastHasher)
	_, err := s.Verify(context.Background(), "", "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	// never reaches the store
	_, err = s.Verify(context.Background(), "al\x00ice@example.com", "secret1")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestUserService_RegisterThenVerify(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockUserStore(ctrl)
	s := user.NewUserService(store, fastHasher)

	var saved *entity.User
	store.EXPECT().GetByEmail(gomock.Any(), "bob@example.com").Return(nil, notFound())
	store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *entity.User) error {
		saved = u
		return nil
	})
	store.EXPECT().GetByEmail(gomock.Any(), "bob@example.com").DoAndReturn(func(context.Context, string) (*entity.User, error) {
		return saved, nil
	})

	registered, err := s.Register(context.Background(), "bob@example.com", "hunter22")
	require.NoError(t, err)
	verified, err := s.Verify(context.Background(), "BOB@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, verified.ID)
}

func TestUserService_GetByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockUserStore(ctrl)
	s := user.NewUserService(store, fastHasher)

	store.EXPECT().GetByID(gomock.Any(), "u1").
		Return(&entity.User{ID: "u1", Email: "a@example.com", PasswordHash: "$2a$..."}, nil)
	store.EXPECT().GetByID(gomock.Any(), "u2").
		Return(nil, pkgerrors.Wrap(sql.ErrNoRows, "get user by id"))

	v, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &entity.PublicView{ID: "u1", Email: "a@example.com"}, v)

	_, err = s.GetByID(context.Background(), "u2")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, "User not found", e.Message)
}
