package domain

import "context"

// Service is the compute service consumed by the HTTP layer. All server
// operations carry the caller's project id from the token scope; a server
// in another project is reported as not found, never as forbidden.
type Service interface {
	CreateFlavor(ctx context.Context, req CreateFlavorRequest) (*Flavor, error)
	ResolveFlavor(ctx context.Context, idOrName string) (*Flavor, error)
	ListFlavors(ctx context.Context) ([]Flavor, error)
	DeleteFlavor(ctx context.Context, idOrName string) error

	CreateServer(ctx context.Context, req CreateServerRequest, userID, projectID string) (*Server, error)
	ResolveServer(ctx context.Context, idOrName, projectID string) (*Server, error)
	ListServers(ctx context.Context, projectID string) ([]Server, error)
	UpdateServer(ctx context.Context, idOrName, projectID string, req UpdateServerRequest) (*Server, error)
	DeleteServer(ctx context.Context, idOrName, projectID string) error

	RebootServer(ctx context.Context, idOrName, projectID string) error
	StartServer(ctx context.Context, idOrName, projectID string) error
	StopServer(ctx context.Context, idOrName, projectID string) error

	CreateKeyPair(ctx context.Context, req CreateKeyPairRequest, userID string) (*KeyPair, error)
	GetKeyPair(ctx context.Context, name, userID string) (*KeyPair, error)
	ListKeyPairs(ctx context.Context, userID string) ([]KeyPair, error)
	DeleteKeyPair(ctx context.Context, name, userID string) error
}

type CreateFlavorRequest struct {
	Name      string
	VCPUs     int
	RAM       int
	Disk      int
	Ephemeral int
	Swap      int
	Public    *bool
}

// CreateServerRequest mirrors the compute boot request. FlavorRef and
// ImageRef accept ids; FlavorRef also accepts a flavor name.
type CreateServerRequest struct {
	Name        string
	FlavorRef   string
	ImageRef    string
	Metadata    map[string]any
	Networks    []map[string]any
	KeyName     *string
	ConfigDrive bool
}

// UpdateServerRequest applies only the fields that are set.
type UpdateServerRequest struct {
	Name     *string
	Metadata map[string]any
}

type CreateKeyPairRequest struct {
	Name      string
	PublicKey string
	Type      string
}
