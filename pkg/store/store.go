// Package store persists profile records keyed by their provisioning
// identifier. The engine depends only on the ProfileStore interface; the
// SQLite implementation exists so the CLI is runnable without external
// infrastructure.
package store

import (
	"context"
	"time"
)

// Profile is the locally persisted record of a remote profile.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GroupID   string    `json:"groupId"`
	OS        string    `json:"os"`
	UserAgent string    `json:"userAgent"`
	Proxy     string    `json:"proxy"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileStore is the narrow CRUD contract the orchestrator persists
// through.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
	UpdateProfile(ctx context.Context, p *Profile) error
	DeleteProfile(ctx context.Context, id string) error

	Close() error
}
