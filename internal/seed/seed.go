// Package seed creates the demo principals used in development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// namespace derives stable ids from seed emails so issued dev tokens survive restarts
var namespace = uuid.MustParse("6f1c2a51-8f0e-4c63-9b8e-0d5a3c7e41aa")

// Writer inserts principals, skipping ids that already exist
type Writer interface {
	EnsureUser(ctx context.Context, u *models.User) error
	EnsureAdmin(ctx context.Context, a *models.Admin) error
}

// TokenIssuer mints access tokens for the seeded principals
type TokenIssuer interface {
	GenerateAccessToken(principal models.Principal) (string, error)
}

// PrincipalID returns the deterministic id of a seeded email
func PrincipalID(email string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(email))
}

// DefaultUsers are approved students who can chat with each other
func DefaultUsers(now time.Time) []*models.User {
	year := "3"
	mk := func(name, email string) *models.User {
		return &models.User{
			ID:         PrincipalID(email),
			Name:       name,
			Email:      email,
			Year:       &year,
			IsApproved: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return []*models.User{
		mk("Asha Reddy", "asha@college.edu"),
		mk("Ravi Kumar", "ravi@college.edu"),
		mk("Meera Nair", "meera@college.edu"),
	}
}

// DefaultAdmins holds one super admin
func DefaultAdmins(now time.Time) []*models.Admin {
	return []*models.Admin{{
		ID:         PrincipalID("admin@college.edu"),
		Name:       "Campus Admin",
		Email:      "admin@college.edu",
		Role:       models.AdminRoleSuper,
		IsApproved: true,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
}

// CreateDefaultData inserts the demo principals. When issuer is not nil a
// development token is logged for each of them.
func CreateDefaultData(ctx context.Context, w Writer, issuer TokenIssuer, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default principals...")
	now := time.Now().UTC()
	var finalErr error
	var seeded []models.Principal

	for _, u := range DefaultUsers(now) {
		if err := w.EnsureUser(ctx, u); err != nil {
			lgr.Error().Err(err).Str("email", u.Email).Msg("Error creating default user")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		seeded = append(seeded, models.Principal{ID: u.ID, Kind: models.PrincipalUser})
	}
	for _, a := range DefaultAdmins(now) {
		if err := w.EnsureAdmin(ctx, a); err != nil {
			lgr.Error().Err(err).Str("email", a.Email).Msg("Error creating default admin")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		seeded = append(seeded, models.Principal{ID: a.ID, Kind: models.PrincipalAdmin})
	}

	if issuer != nil {
		for _, p := range seeded {
			token, err := issuer.GenerateAccessToken(p)
			if err != nil {
				finalErr = errors.Join(finalErr, err)
				continue
			}
			lgr.Info().
				Str("principalID", p.ID.String()).
				Str("kind", string(p.Kind)).
				Str("token", token).
				Msg("Development token")
		}
	}

	lgr.Info().Int("principals", len(seeded)).Msg("Default principals ready")
	return finalErr
}
