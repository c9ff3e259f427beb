// Package seed creates the schema and the initial identity records.
package seed

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neilfarmer/mopenstack/internal/config"
	keystonedomain "github.com/neilfarmer/mopenstack/internal/keystone/domain"
	"github.com/neilfarmer/mopenstack/internal/keystone/password"
	novadomain "github.com/neilfarmer/mopenstack/internal/nova/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

// Run migrates the schema and seeds the bootstrap records. Wired as an fx
// invocation so it completes before the HTTP server starts.
func Run(gdb *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if err := Migrate(gdb); err != nil {
		return err
	}
	return Ensure(context.Background(), gdb, cfg, log)
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&keystonedomain.Domain{},
		&keystonedomain.Project{},
		&keystonedomain.User{},
		&keystonedomain.Role{},
		&keystonedomain.Token{},
		&novadomain.Flavor{},
		&novadomain.Server{},
		&novadomain.KeyPair{},
	)
}

// Ensure creates the default domain, admin project, admin user, and the
// standard roles. Every record is looked up before it is created, so
// running Ensure repeatedly is safe.
func Ensure(ctx context.Context, gdb *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("seed")

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dom, err := ensureDefaultDomain(tx)
		if err != nil {
			return err
		}

		project, err := ensureProject(tx, cfg.AdminProject, dom.ID)
		if err != nil {
			return err
		}

		created, err := ensureAdminUser(tx, cfg, dom.ID, project.ID)
		if err != nil {
			return err
		}
		if created {
			log.Info("admin user created",
				zap.String("username", cfg.AdminUsername),
				zap.String("project", cfg.AdminProject),
			)
			log.Debug("admin credentials", zap.String("password", cfg.AdminPassword))
		}

		for name, description := range map[string]string{
			"admin":  "Administrator role",
			"member": "Member role",
			"reader": "Read-only role",
		} {
			if err := ensureRole(tx, name, description); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureDefaultDomain(tx *gorm.DB) (*keystonedomain.Domain, error) {
	var domains []keystonedomain.Domain
	if err := tx.Find(&domains).Error; err != nil {
		return nil, err
	}
	for i := range domains {
		if strings.EqualFold(domains[i].Name, "default") {
			return &domains[i], nil
		}
	}

	now := time.Now().UTC()
	dom := keystonedomain.Domain{
		ID:          uuid.NewString(),
		Name:        "Default",
		Description: "The default domain",
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Create(&dom).Error; err != nil {
		return nil, err
	}
	return &dom, nil
}

func ensureProject(tx *gorm.DB, name, domainID string) (*keystonedomain.Project, error) {
	var project keystonedomain.Project
	err := tx.Where("name = ? AND domain_id = ?", name, domainID).First(&project).Error
	if err == nil {
		return &project, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	project = keystonedomain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: "Bootstrap project",
		Enabled:     true,
		DomainID:    domainID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func ensureAdminUser(tx *gorm.DB, cfg config.Config, domainID, projectID string) (bool, error) {
	var user keystonedomain.User
	err := tx.Where("name = ? AND domain_id = ?", cfg.AdminUsername, domainID).First(&user).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	user = keystonedomain.User{
		ID:               uuid.NewString(),
		Name:             cfg.AdminUsername,
		PasswordHash:     hashed,
		Enabled:          true,
		DomainID:         domainID,
		DefaultProjectID: &projectID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

func ensureRole(tx *gorm.DB, name, description string) error {
	var role keystonedomain.Role
	err := tx.Where("name = ?", name).First(&role).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	now := time.Now().UTC()
	role = keystonedomain.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return tx.Create(&role).Error
}
