package people

import "context"

type StoreAPI interface {
	ListProfiles(ctx context.Context, filter Filter) ([]Record, error)
	GetProfile(ctx context.Context, id string) (Record, error)
	CreateProfile(ctx context.Context, rec Record, passwordHash string) (Record, error)
	UpdateProfile(ctx context.Context, id string, input UpdateInput) (Record, error)
	SetSupervisor(ctx context.Context, clinicianID string, supervisorID *string) (Record, error)
}
