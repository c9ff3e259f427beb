package repository

import (
	"context"
	"errors"

	"github.com/neilfarmer/mopenstack/internal/nova/domain"
	"github.com/neilfarmer/mopenstack/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Store {
	return &repo{db: db}
}

func (r *repo) CreateFlavor(ctx context.Context, flavor *domain.Flavor) error {
	// The service checks the name first; this catches the race under the
	// unique index.
	if err := r.db.WithContext(ctx).Create(flavor).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrFlavorNameTaken
		}
		return err
	}
	return nil
}

func (r *repo) FlavorByID(ctx context.Context, id string) (*domain.Flavor, error) {
	var flavor domain.Flavor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&flavor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrFlavorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &flavor, nil
}

func (r *repo) FlavorByName(ctx context.Context, name string) (*domain.Flavor, error) {
	var flavor domain.Flavor
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&flavor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrFlavorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &flavor, nil
}

func (r *repo) ListFlavors(ctx context.Context) ([]domain.Flavor, error) {
	var flavors []domain.Flavor
	if err := r.db.WithContext(ctx).Order("created_at").Find(&flavors).Error; err != nil {
		return nil, err
	}
	return flavors, nil
}

func (r *repo) DeleteFlavor(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Flavor{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrFlavorNotFound
	}
	return nil
}

func (r *repo) CountServersByFlavor(ctx context.Context, flavorID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Server{}).
		Where("flavor_id = ?", flavorID).
		Count(&count).Error
	return count, err
}

func (r *repo) CreateServer(ctx context.Context, server *domain.Server) error {
	return r.db.WithContext(ctx).Create(server).Error
}

func (r *repo) SaveServer(ctx context.Context, server *domain.Server) error {
	return r.db.WithContext(ctx).Save(server).Error
}

func (r *repo) ServerByID(ctx context.Context, id string) (*domain.Server, error) {
	var server domain.Server
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrServerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (r *repo) ServerByName(ctx context.Context, name, projectID string) (*domain.Server, error) {
	var server domain.Server
	err := r.db.WithContext(ctx).
		Where("name = ? AND project_id = ?", name, projectID).
		First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrServerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (r *repo) ListServers(ctx context.Context, projectID string) ([]domain.Server, error) {
	var servers []domain.Server
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

func (r *repo) DeleteServer(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Server{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrServerNotFound
	}
	return nil
}

func (r *repo) CreateKeyPair(ctx context.Context, keypair *domain.KeyPair) error {
	return r.db.WithContext(ctx).Create(keypair).Error
}

func (r *repo) KeyPairByName(ctx context.Context, name, userID string) (*domain.KeyPair, error) {
	var keypair domain.KeyPair
	err := r.db.WithContext(ctx).
		Where("name = ? AND user_id = ?", name, userID).
		First(&keypair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrKeyPairNotFound
	}
	if err != nil {
		return nil, err
	}
	return &keypair, nil
}

func (r *repo) ListKeyPairs(ctx context.Context, userID string) ([]domain.KeyPair, error) {
	var keypairs []domain.KeyPair
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name").
		Find(&keypairs).Error
	if err != nil {
		return nil, err
	}
	return keypairs, nil
}

func (r *repo) DeleteKeyPair(ctx context.Context, name, userID string) error {
	tx := r.db.WithContext(ctx).
		Where("name = ? AND user_id = ?", name, userID).
		Delete(&domain.KeyPair{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrKeyPairNotFound
	}
	return nil
}
