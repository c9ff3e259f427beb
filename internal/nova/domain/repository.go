package domain

import "context"

// Store is the persistence contract consumed by the compute service.
type Store interface {
	CreateFlavor(ctx context.Context, flavor *Flavor) error
	FlavorByID(ctx context.Context, id string) (*Flavor, error)
	FlavorByName(ctx context.Context, name string) (*Flavor, error)
	ListFlavors(ctx context.Context) ([]Flavor, error)
	DeleteFlavor(ctx context.Context, id string) error
	CountServersByFlavor(ctx context.Context, flavorID string) (int64, error)

	CreateServer(ctx context.Context, server *Server) error
	SaveServer(ctx context.Context, server *Server) error
	ServerByID(ctx context.Context, id string) (*Server, error)
	ServerByName(ctx context.Context, name, projectID string) (*Server, error)
	ListServers(ctx context.Context, projectID string) ([]Server, error)
	DeleteServer(ctx context.Context, id string) error

	CreateKeyPair(ctx context.Context, keypair *KeyPair) error
	KeyPairByName(ctx context.Context, name, userID string) (*KeyPair, error)
	ListKeyPairs(ctx context.Context, userID string) ([]KeyPair, error)
	DeleteKeyPair(ctx context.Context, name, userID string) error
}
