package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type fakeUserStore struct {
	byEmail map[string]domain.User
	nextID  uint
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]domain.User),
	}
}

func (f *fakeUserStore) Create(_ context.Context, user domain.User) (domain.User, error) {
	if _, ok := f.byEmail[user.Email]; ok {
		return domain.User{}, service.ErrUserEmailExists
	}

	f.nextID++
	user.ID = f.nextID
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (domain.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, service.ErrUserNotFound
	}
	return user, nil
}

func TestSignup(t *testing.T) {
	store := newFakeUserStore()
	svc := service.NewAuthService(store)

	user, err := svc.Signup(context.Background(), domain.User{
		Email:    "owner@bar.test",
		Password: "super-secret",
		Name:     "Owner",
		Role:     domain.RoleManager,
	})

	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	// The stored password is a bcrypt hash, never the plaintext.
	stored := store.byEmail["owner@bar.test"]
	assert.NotEqual(t, "super-secret", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("super-secret")))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := service.NewAuthService(store)

	_, err := svc.Signup(context.Background(), domain.User{Email: "owner@bar.test", Password: "super-secret"})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), domain.User{Email: "owner@bar.test", Password: "super-secret"})
	assert.ErrorIs(t, err, service.ErrUserEmailExists)
}

func TestLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := service.NewAuthService(store)

	_, err := svc.Signup(context.Background(), domain.User{Email: "owner@bar.test", Password: "super-secret"})
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		user, err := svc.Login(context.Background(), "owner@bar.test", "super-secret")

		require.NoError(t, err)
		assert.Equal(t, "owner@bar.test", user.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "owner@bar.test", "not-it")

		assert.ErrorIs(t, err, service.ErrWrongPassword)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "nobody@bar.test", "super-secret")

		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})
}
