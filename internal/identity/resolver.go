// Package identity resolves user ids to display names for message enrichment.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

// Local answers from the user replica kept in the room store.
type Local struct {
	users core.UserStore
}

func NewLocal(users core.UserStore) *Local {
	return &Local{users: users}
}

func (l *Local) DisplayName(ctx context.Context, id domain.UserID) (string, error) {
	u, err := l.users.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	if u.Username == "" {
		return "", fmt.Errorf("%w: %s has no name", domain.ErrIdentityUnresolved, id)
	}
	return u.Username, nil
}

// Chain asks each resolver in turn and returns the first name found.
type Chain []core.IdentityResolver

func (c Chain) DisplayName(ctx context.Context, id domain.UserID) (string, error) {
	var errs []error
	for _, r := range c {
		name, err := r.DisplayName(ctx, id)
		if err == nil {
			return name, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, err)
	}
	return "", fmt.Errorf("%w: %s: %v", domain.ErrIdentityUnresolved, id, errors.Join(errs...))
}

// NameOrPlaceholder degrades an unresolved identity to placeholder instead of failing.
func NameOrPlaceholder(ctx context.Context, r core.IdentityResolver, id domain.UserID, placeholder string) string {
	name, err := r.DisplayName(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("module", "identity").Str("user", string(id)).Msg("display name unresolved")
		return placeholder
	}
	return name
}
