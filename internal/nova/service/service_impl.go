package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neilfarmer/mopenstack/internal/nova/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service struct {
	log   *zap.Logger
	store domain.Store
	now   func() time.Time
}

func New(log *zap.Logger, store domain.Store) domain.Service {
	return &Service{
		log:   log.Named("nova.service"),
		store: store,
		now:   time.Now,
	}
}

func (s *Service) CreateFlavor(ctx context.Context, req domain.CreateFlavorRequest) (*domain.Flavor, error) {
	if _, err := s.store.FlavorByName(ctx, req.Name); err == nil {
		return nil, domain.ErrFlavorNameTaken
	} else if !errors.Is(err, domain.ErrFlavorNotFound) {
		return nil, err
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	now := s.now().UTC()
	flavor := &domain.Flavor{
		ID:        uuid.NewString(),
		Name:      req.Name,
		VCPUs:     req.VCPUs,
		RAM:       req.RAM,
		Disk:      req.Disk,
		Ephemeral: req.Ephemeral,
		Swap:      req.Swap,
		Public:    public,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateFlavor(ctx, flavor); err != nil {
		return nil, err
	}
	return flavor, nil
}

// ResolveFlavor looks a flavor up by id, then by name.
func (s *Service) ResolveFlavor(ctx context.Context, idOrName string) (*domain.Flavor, error) {
	flavor, err := s.store.FlavorByID(ctx, idOrName)
	if err == nil {
		return flavor, nil
	}
	if !errors.Is(err, domain.ErrFlavorNotFound) {
		return nil, err
	}
	return s.store.FlavorByName(ctx, idOrName)
}

func (s *Service) ListFlavors(ctx context.Context) ([]domain.Flavor, error) {
	return s.store.ListFlavors(ctx)
}

func (s *Service) DeleteFlavor(ctx context.Context, idOrName string) error {
	flavor, err := s.ResolveFlavor(ctx, idOrName)
	if err != nil {
		return err
	}

	inUse, err := s.store.CountServersByFlavor(ctx, flavor.ID)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return domain.ErrFlavorInUse
	}
	return s.store.DeleteFlavor(ctx, flavor.ID)
}

func (s *Service) CreateServer(ctx context.Context, req domain.CreateServerRequest, userID, projectID string) (*domain.Server, error) {
	if strings.TrimSpace(req.ImageRef) == "" {
		return nil, fmt.Errorf("%w: image reference is required", domain.ErrBadRequest)
	}

	flavor, err := s.ResolveFlavor(ctx, req.FlavorRef)
	if err != nil {
		if errors.Is(err, domain.ErrFlavorNotFound) {
			return nil, fmt.Errorf("%w: flavor %q not found", domain.ErrBadRequest, req.FlavorRef)
		}
		return nil, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	var networks datatypes.JSON
	if req.Networks != nil {
		networks, err = marshalNetworks(req.Networks)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
		}
	}

	spawning := "spawning"
	now := s.now().UTC()
	server := &domain.Server{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Status:      domain.StatusBuild,
		PowerState:  domain.PowerNoState,
		TaskState:   &spawning,
		VMState:     "building",
		FlavorID:    flavor.ID,
		ImageID:     req.ImageRef,
		UserID:      userID,
		ProjectID:   projectID,
		Metadata:    metadata,
		ConfigDrive: req.ConfigDrive,
		KeyName:     req.KeyName,
		Networks:    networks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateServer(ctx, server); err != nil {
		return nil, err
	}

	// There is no hypervisor behind this API, so the boot completes
	// synchronously before the create call returns.
	launched := s.now().UTC()
	server.Status = domain.StatusActive
	server.PowerState = domain.PowerRunning
	server.TaskState = nil
	server.VMState = "active"
	server.LaunchedAt = &launched
	if err := s.store.SaveServer(ctx, server); err != nil {
		return nil, err
	}

	s.log.Debug("server booted",
		zap.String("server_id", server.ID),
		zap.String("project_id", projectID),
	)
	return server, nil
}

// ResolveServer looks a server up by id, then by name within projectID. A
// server owned by another project is reported as not found so callers
// cannot probe for foreign instances.
func (s *Service) ResolveServer(ctx context.Context, idOrName, projectID string) (*domain.Server, error) {
	server, err := s.store.ServerByID(ctx, idOrName)
	if err == nil {
		if server.ProjectID != projectID {
			return nil, domain.ErrServerNotFound
		}
		return server, nil
	}
	if !errors.Is(err, domain.ErrServerNotFound) {
		return nil, err
	}
	return s.store.ServerByName(ctx, idOrName, projectID)
}

func (s *Service) ListServers(ctx context.Context, projectID string) ([]domain.Server, error) {
	return s.store.ListServers(ctx, projectID)
}

func (s *Service) UpdateServer(ctx context.Context, idOrName, projectID string, req domain.UpdateServerRequest) (*domain.Server, error) {
	server, err := s.ResolveServer(ctx, idOrName, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		server.Name = *req.Name
	}
	if req.Metadata != nil {
		metadata := datatypes.JSONMap{}
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		server.Metadata = metadata
	}
	server.UpdatedAt = s.now().UTC()

	if err := s.store.SaveServer(ctx, server); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *Service) DeleteServer(ctx context.Context, idOrName, projectID string) error {
	server, err := s.ResolveServer(ctx, idOrName, projectID)
	if err != nil {
		return err
	}
	return s.store.DeleteServer(ctx, server.ID)
}

func (s *Service) RebootServer(ctx context.Context, idOrName, projectID string) error {
	server, err := s.ResolveServer(ctx, idOrName, projectID)
	if err != nil {
		return err
	}
	if server.Status != domain.StatusActive {
		return fmt.Errorf("%w: reboot requires ACTIVE, server is %s", domain.ErrInvalidServerState, server.Status)
	}

	server.PowerState = domain.PowerRunning
	server.TaskState = nil
	server.UpdatedAt = s.now().UTC()
	return s.store.SaveServer(ctx, server)
}

func (s *Service) StartServer(ctx context.Context, idOrName, projectID string) error {
	server, err := s.ResolveServer(ctx, idOrName, projectID)
	if err != nil {
		return err
	}
	if server.Status != domain.StatusShutoff && server.Status != domain.StatusStopped {
		return fmt.Errorf("%w: start requires SHUTOFF, server is %s", domain.ErrInvalidServerState, server.Status)
	}

	server.Status = domain.StatusActive
	server.PowerState = domain.PowerRunning
	server.VMState = "active"
	server.TaskState = nil
	server.UpdatedAt = s.now().UTC()
	return s.store.SaveServer(ctx, server)
}

func (s *Service) StopServer(ctx context.Context, idOrName, projectID string) error {
	server, err := s.ResolveServer(ctx, idOrName, projectID)
	if err != nil {
		return err
	}
	if server.Status != domain.StatusActive {
		return fmt.Errorf("%w: stop requires ACTIVE, server is %s", domain.ErrInvalidServerState, server.Status)
	}

	server.Status = domain.StatusShutoff
	server.PowerState = domain.PowerShutdown
	server.VMState = "stopped"
	server.TaskState = nil
	server.UpdatedAt = s.now().UTC()
	return s.store.SaveServer(ctx, server)
}

func (s *Service) CreateKeyPair(ctx context.Context, req domain.CreateKeyPairRequest, userID string) (*domain.KeyPair, error) {
	if _, err := s.store.KeyPairByName(ctx, req.Name, userID); err == nil {
		return nil, domain.ErrKeyPairNameTaken
	} else if !errors.Is(err, domain.ErrKeyPairNotFound) {
		return nil, err
	}

	publicKey := req.PublicKey
	fingerprint := "mock:fingerprint"
	if publicKey == "" {
		publicKey = "mock-public-key"
	} else {
		fingerprint = fingerprintOf(publicKey)
	}

	keyType := req.Type
	if keyType == "" {
		keyType = "ssh"
	}

	keypair := &domain.KeyPair{
		ID:          uuid.NewString(),
		Name:        req.Name,
		UserID:      userID,
		PublicKey:   publicKey,
		Fingerprint: fingerprint,
		Type:        keyType,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateKeyPair(ctx, keypair); err != nil {
		return nil, err
	}
	return keypair, nil
}

func (s *Service) GetKeyPair(ctx context.Context, name, userID string) (*domain.KeyPair, error) {
	return s.store.KeyPairByName(ctx, name, userID)
}

func (s *Service) ListKeyPairs(ctx context.Context, userID string) ([]domain.KeyPair, error) {
	return s.store.ListKeyPairs(ctx, userID)
}

func (s *Service) DeleteKeyPair(ctx context.Context, name, userID string) error {
	return s.store.DeleteKeyPair(ctx, name, userID)
}

func marshalNetworks(networks []map[string]any) (datatypes.JSON, error) {
	raw, err := json.Marshal(networks)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// fingerprintOf renders the md5 of the public key as colon-separated hex
// pairs, the format OpenSSH prints for legacy fingerprints.
func fingerprintOf(publicKey string) string {
	sum := md5.Sum([]byte(publicKey))
	raw := hex.EncodeToString(sum[:])

	pairs := make([]string, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		pairs = append(pairs, raw[i:i+2])
	}
	return strings.Join(pairs, ":")
}
