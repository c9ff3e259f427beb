// Package glance serves a fixed, in-memory image catalog. There is no
// image data behind it; only the metadata clients use to pick an imageRef.
package glance

import (
	"errors"
	"time"
)

// ErrImageNotFound is returned for unknown ids and aliases.
var ErrImageNotFound = errors.New("image not found")

// Image is the metadata record served by the image API.
type Image struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Status          string   `json:"status"`
	Visibility      string   `json:"visibility"`
	Size            int64    `json:"size"`
	DiskFormat      string   `json:"disk_format"`
	ContainerFormat string   `json:"container_format"`
	Checksum        string   `json:"checksum"`
	MinDisk         int      `json:"min_disk"`
	MinRAM          int      `json:"min_ram"`
	Protected       bool     `json:"protected"`
	Tags            []string `json:"tags"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// Well-known image ids. Fixed so that scripted clients can pin imageRefs
// across restarts.
const (
	UbuntuID = "3394d42a-9583-4c79-9a1b-7bb94ae7dc04"
	CentOSID = "c8b1e50a-3c91-4d2e-a5f6-8f7b2a9c1d3e"
	DebianID = "f2e4d6c8-1a3b-4c5d-9e7f-2b8d4c6e8f0a"
)

var catalogStamp = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC).Format(time.RFC3339)

var images = []Image{
	{
		ID:              UbuntuID,
		Name:            "Ubuntu 22.04 LTS",
		Status:          "active",
		Visibility:      "public",
		Size:            641_728_512,
		DiskFormat:      "qcow2",
		ContainerFormat: "bare",
		Checksum:        "2eae48c9a8ac740cbcd7e14a1fdc0b2d",
		MinDisk:         3,
		MinRAM:          512,
		Tags:            []string{"ubuntu", "lts"},
		CreatedAt:       catalogStamp,
		UpdatedAt:       catalogStamp,
	},
	{
		ID:              CentOSID,
		Name:            "CentOS 8 Stream",
		Status:          "active",
		Visibility:      "public",
		Size:            1_264_582_656,
		DiskFormat:      "qcow2",
		ContainerFormat: "bare",
		Checksum:        "8c4f59a1bb2e4ddf9c6a0e1f3b5d7a92",
		MinDisk:         10,
		MinRAM:          1024,
		Tags:            []string{"centos"},
		CreatedAt:       catalogStamp,
		UpdatedAt:       catalogStamp,
	},
	{
		ID:              DebianID,
		Name:            "Debian 12 Bookworm",
		Status:          "active",
		Visibility:      "public",
		Size:            412_090_368,
		DiskFormat:      "qcow2",
		ContainerFormat: "bare",
		Checksum:        "5b1d3fa7c9e2481fa0d6b8c4e7f2a613",
		MinDisk:         2,
		MinRAM:          512,
		Tags:            []string{"debian"},
		CreatedAt:       catalogStamp,
		UpdatedAt:       catalogStamp,
	},
}

// aliases are short names accepted in place of image ids.
var aliases = map[string]string{
	"ubuntu-22.04": UbuntuID,
	"centos-8":     CentOSID,
	"debian-12":    DebianID,
}

// List returns the catalog, optionally filtered by exact name.
func List(name string) []Image {
	if name == "" {
		out := make([]Image, len(images))
		copy(out, images)
		return out
	}

	var out []Image
	for _, img := range images {
		if img.Name == name {
			out = append(out, img)
		}
	}
	return out
}

// Get resolves idOrAlias to an image.
func Get(idOrAlias string) (*Image, error) {
	id := idOrAlias
	if mapped, ok := aliases[idOrAlias]; ok {
		id = mapped
	}
	for _, img := range images {
		if img.ID == id {
			out := img
			return &out, nil
		}
	}
	return nil, ErrImageNotFound
}
