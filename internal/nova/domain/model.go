// Package domain contains core types for the compute service.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Server status values.
const (
	StatusBuild   = "BUILD"
	StatusActive  = "ACTIVE"
	StatusShutoff = "SHUTOFF"
	StatusStopped = "STOPPED"
	StatusError   = "ERROR"
)

// Power state values reported alongside status.
const (
	PowerNoState  = "NOSTATE"
	PowerRunning  = "Running"
	PowerShutdown = "Shutdown"
)

// Flavor is a hardware profile servers boot from. Names are unique.
type Flavor struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null;uniqueIndex" json:"name"`
	VCPUs     int       `gorm:"column:vcpus;not null" json:"vcpus"`
	RAM       int       `gorm:"column:ram;not null" json:"ram"`
	Disk      int       `gorm:"not null" json:"disk"`
	Ephemeral int       `gorm:"default:0" json:"OS-FLV-EXT-DATA:ephemeral"`
	Swap      int       `gorm:"default:0" json:"swap"`
	Public    bool      `gorm:"not null;default:true" json:"os-flavor-access:is_public"`
	Disabled  bool      `gorm:"not null;default:false" json:"OS-FLV-DISABLED:disabled"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

// TableName sets the database table name.
func (Flavor) TableName() string { return "flavors" }

// Server is a simulated compute instance. No hypervisor is involved;
// state transitions happen synchronously in the service layer.
type Server struct {
	ID         string  `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"type:text;not null;index" json:"name"`
	Status     string  `gorm:"type:text;not null;default:BUILD" json:"status"`
	PowerState string  `gorm:"column:power_state;type:text;not null;default:NOSTATE" json:"power_state"`
	TaskState  *string `gorm:"column:task_state;type:text" json:"task_state"`
	VMState    string  `gorm:"column:vm_state;type:text;not null;default:building" json:"vm_state"`

	FlavorID string `gorm:"column:flavor_id;not null;index" json:"flavor_id"`
	ImageID  string `gorm:"column:image_id;not null" json:"image_id"`

	UserID    string `gorm:"column:user_id;not null;index" json:"user_id"`
	ProjectID string `gorm:"column:project_id;not null;index" json:"tenant_id"`

	Metadata    datatypes.JSONMap `gorm:"column:server_metadata" json:"metadata"`
	ConfigDrive bool              `gorm:"column:config_drive;default:false" json:"config_drive"`
	KeyName     *string           `gorm:"column:key_name" json:"key_name,omitempty"`
	Networks    datatypes.JSON    `gorm:"column:networks" json:"-"`

	CreatedAt    time.Time  `gorm:"not null" json:"created"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated"`
	LaunchedAt   *time.Time `gorm:"column:launched_at" json:"OS-SRV-USG:launched_at,omitempty"`
	TerminatedAt *time.Time `gorm:"column:terminated_at" json:"OS-SRV-USG:terminated_at,omitempty"`
}

// TableName sets the database table name.
func (Server) TableName() string { return "servers" }

// KeyPair is an SSH key registered per user. Names are unique per user,
// enforced by lookup in the service layer.
type KeyPair struct {
	ID          string    `gorm:"primaryKey" json:"-"`
	Name        string    `gorm:"type:text;not null;index" json:"name"`
	UserID      string    `gorm:"column:user_id;not null;index" json:"user_id"`
	PublicKey   string    `gorm:"column:public_key;type:text;not null" json:"public_key"`
	Fingerprint string    `gorm:"type:text;not null" json:"fingerprint"`
	Type        string    `gorm:"type:text;not null;default:ssh" json:"type"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (KeyPair) TableName() string { return "keypairs" }
