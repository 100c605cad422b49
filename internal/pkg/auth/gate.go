package auth

import (
	"context"
	"errors"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PrincipalStore is what the gate reads to turn a token into a principal
type PrincipalStore interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetAdminByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error)
	GetParticipant(ctx context.Context, chatID, principalID uuid.UUID) (*models.ChatParticipant, error)
}

var _ PrincipalStore = (repositories.Store)(nil)

// Gate resolves credentials into principals and answers membership questions.
// Callers never look inside a token themselves.
type Gate struct {
	jwt    *JWTService
	store  PrincipalStore
	logger zerolog.Logger
}

// NewGate creates a new Gate
func NewGate(jwtService *JWTService, store PrincipalStore, logger zerolog.Logger) *Gate {
	return &Gate{
		jwt:    jwtService,
		store:  store,
		logger: logger,
	}
}

// ResolvePrincipal validates the token and looks its id up, admins first.
// Admins must be approved unless they are super admins.
func (g *Gate) ResolvePrincipal(ctx context.Context, token string) (models.Principal, error) {
	_, id, err := g.jwt.ValidateAndExtractClaims(token)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			return models.Principal{}, &apperrors.CustomError{Err: apperrors.ErrTokenExpired, Message: "Token has expired"}
		default:
			return models.Principal{}, &apperrors.CustomError{Err: apperrors.ErrTokenInvalid, Message: "Invalid token"}
		}
	}

	admin, err := g.store.GetAdminByID(ctx, id)
	switch {
	case err == nil:
		if !admin.IsActive {
			return models.Principal{}, apperrors.NewAuthenticationError("Admin account is disabled", nil)
		}
		if !admin.CanSignIn() {
			return models.Principal{}, &apperrors.CustomError{
				Err:     apperrors.ErrPendingApproval,
				Message: "Your admin account is pending approval by super admin",
			}
		}
		return models.Principal{ID: admin.ID, Kind: models.PrincipalAdmin}, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		g.logger.Error().Err(err).Str("principalID", id.String()).Msg("Admin lookup failed")
		return models.Principal{}, apperrors.NewPersistenceError("resolve principal", err)
	}

	user, err := g.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.Principal{}, apperrors.NewAuthenticationError("User not found", nil)
		}
		g.logger.Error().Err(err).Str("principalID", id.String()).Msg("User lookup failed")
		return models.Principal{}, apperrors.NewPersistenceError("resolve principal", err)
	}
	return models.Principal{ID: user.ID, Kind: models.PrincipalUser}, nil
}

// IsParticipant reports whether the principal belongs to the chat
func (g *Gate) IsParticipant(ctx context.Context, chatID, principalID uuid.UUID) (bool, error) {
	participant, err := g.store.GetParticipant(ctx, chatID, principalID)
	if err != nil {
		return false, err
	}
	return participant != nil, nil
}
