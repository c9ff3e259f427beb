// Package catalog builds the per-request service catalog advertised in
// token responses.
package catalog

import (
	"fmt"
	"strings"
)

// Entry is one advertised service with its public endpoint.
type Entry struct {
	Type      string
	Name      string
	Path      string
	Interface string
	Region    string
}

// Endpoint is the serialized endpoint form embedded in token responses.
type Endpoint struct {
	ID        string `json:"id"`
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

// Service is the serialized catalog entry form.
type Service struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	ID        string     `json:"id"`
	Endpoints []Endpoint `json:"endpoints"`
}

// entries is the fixed set of services this process emulates, in the
// order they appear in the catalog.
var entries = []Entry{
	{Type: "identity", Name: "keystone", Path: "/v3", Interface: "public", Region: "RegionOne"},
	{Type: "compute", Name: "nova", Path: "/v2.1", Interface: "public", Region: "RegionOne"},
	{Type: "network", Name: "neutron", Path: "/v2.0", Interface: "public", Region: "RegionOne"},
	{Type: "image", Name: "glance", Path: "/v2", Interface: "public", Region: "RegionOne"},
}

// Build renders the catalog against baseURL, the scheme://host[:port] the
// client used to reach this process. Every service points back at the same
// listener.
func Build(baseURL string) []Service {
	base := strings.TrimRight(baseURL, "/")

	services := make([]Service, 0, len(entries))
	for _, e := range entries {
		services = append(services, Service{
			Type: e.Type,
			Name: e.Name,
			ID:   e.Name,
			Endpoints: []Endpoint{
				{
					ID:        fmt.Sprintf("%s-%s", e.Name, e.Interface),
					Interface: e.Interface,
					Region:    e.Region,
					RegionID:  e.Region,
					URL:       base + e.Path,
				},
			},
		})
	}
	return services
}
