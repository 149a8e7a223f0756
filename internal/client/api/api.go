// Package api defines the typed remote API surface of the CredLink backend
// and its HTTP implementation. All classification of transport failures
// into the common error taxonomy happens here, at the boundary; stores and
// services never see raw HTTP errors.
package api

import (
	"context"

	"github.com/credlink/credlink/internal/client/models"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateRequestInput aggregates one verification request submission.
type CreateRequestInput struct {
	Type          models.RequestType   `json:"type"`
	Personal      models.PersonalInfo  `json:"personal"`
	Education     models.EducationInfo `json:"education"`
	SelfieImageID string               `json:"selfieImageId"`
	IDImageID     string               `json:"idImageId"`
}

// Client is the typed remote API. Authenticated operations take the bearer
// token explicitly; the session store is the only component that owns it.
type Client interface {
	Register(ctx context.Context, in Registration) (*models.User, error)
	Login(ctx context.Context, in Credentials) (*models.User, error)
	GetProfile(ctx context.Context, token string) (*models.User, error)

	// UpdateDID links (or with a nil address, unlinks) a wallet-derived
	// DID. The server returns the merged user record, which replaces the
	// local one wholesale.
	UpdateDID(ctx context.Context, token, userID string, walletAddress *string) (*models.User, error)

	GetAvatar(ctx context.Context, token string) (*models.Avatar, error)
	UploadAvatar(ctx context.Context, token string, asset models.PhotoAsset) (*models.Avatar, error)
	DeleteAvatar(ctx context.Context, token, id string) error

	UploadPhoto(ctx context.Context, token string, asset models.PhotoAsset) (*models.PhotoAsset, error)
	ListPhotos(ctx context.Context, token string) ([]models.PhotoAsset, error)
	DeletePhoto(ctx context.Context, token, id string) error

	ListMyRequests(ctx context.Context, token string) ([]models.VerificationRequest, error)
	CreateRequest(ctx context.Context, token string, in CreateRequestInput) (*models.VerificationRequest, error)

	Close() error
}
