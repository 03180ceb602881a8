package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/studyhall/server/internal/domain"
)

// UserRepository keeps the identities seen in verified tokens so that
// authors can be named without a round trip to the profile service.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (u *UserRepository) PutUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := update(u.db, func(txn *badger.Txn) error {
		return setJSON(txn, userKey(user.ID), user)
	})
	return wrapErr("put user", err)
}

func (u *UserRepository) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrIdentityUnresolved, id)
	}
	return user, wrapErr("get user", err)
}
