package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DisplayStrategy looks an id up in one identity source.
// It returns (nil, nil) when the source does not know the id.
type DisplayStrategy interface {
	Name() string
	Lookup(ctx context.Context, id uuid.UUID) (*dto.PrincipalDisplay, error)
}

// UserDirectory resolves ids against the users table
type UserDirectory struct {
	store repositories.DirectoryStore
}

// NewUserDirectory creates a UserDirectory
func NewUserDirectory(store repositories.DirectoryStore) *UserDirectory {
	return &UserDirectory{store: store}
}

func (d *UserDirectory) Name() string { return "users" }

// Lookup returns the display info of a user
func (d *UserDirectory) Lookup(ctx context.Context, id uuid.UUID) (*dto.PrincipalDisplay, error) {
	user, err := d.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	display := dto.UserDisplay(user)
	return &display, nil
}

// AdminDirectory resolves ids against the admins table
type AdminDirectory struct {
	store repositories.DirectoryStore
}

// NewAdminDirectory creates an AdminDirectory
func NewAdminDirectory(store repositories.DirectoryStore) *AdminDirectory {
	return &AdminDirectory{store: store}
}

func (d *AdminDirectory) Name() string { return "admins" }

// Lookup returns the display info of an admin
func (d *AdminDirectory) Lookup(ctx context.Context, id uuid.UUID) (*dto.PrincipalDisplay, error) {
	admin, err := d.store.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	display := dto.AdminDisplay(admin)
	return &display, nil
}

// IdentityResolver turns principal ids into display info by asking each
// strategy in order. The first hit wins; exhaustion yields the placeholder.
type IdentityResolver struct {
	strategies []DisplayStrategy
	logger     zerolog.Logger
}

// NewIdentityResolver creates a resolver over the given strategies
func NewIdentityResolver(logger zerolog.Logger, strategies ...DisplayStrategy) *IdentityResolver {
	return &IdentityResolver{
		strategies: strategies,
		logger:     logger,
	}
}

// NewDefaultIdentityResolver checks users first, then admins
func NewDefaultIdentityResolver(store repositories.DirectoryStore, logger zerolog.Logger) *IdentityResolver {
	return NewIdentityResolver(logger, NewUserDirectory(store), NewAdminDirectory(store))
}

// Lookup reports the display info of id and whether any strategy knew it.
// A failing strategy is logged and skipped. When nothing knew the id and at
// least one strategy failed, the first failure is returned so callers can tell
// an outage from an unknown id.
func (r *IdentityResolver) Lookup(ctx context.Context, id uuid.UUID) (dto.PrincipalDisplay, bool, error) {
	var firstErr error
	for _, strategy := range r.strategies {
		display, err := strategy.Lookup(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("principalID", id.String()).
				Str("strategy", strategy.Name()).
				Msg("Identity lookup failed, trying next source")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s lookup: %w", strategy.Name(), err)
			}
			continue
		}
		if display != nil {
			return *display, true, nil
		}
	}
	return dto.UnknownPrincipal(id), false, firstErr
}

// Resolve returns the display info of id, or the "Unknown User" placeholder
func (r *IdentityResolver) Resolve(ctx context.Context, id uuid.UUID) dto.PrincipalDisplay {
	display, _, _ := r.Lookup(ctx, id)
	return display
}

// ResolveMany resolves each distinct id once
func (r *IdentityResolver) ResolveMany(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]dto.PrincipalDisplay {
	out := make(map[uuid.UUID]dto.PrincipalDisplay, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		out[id] = r.Resolve(ctx, id)
	}
	return out
}
