package board_client

import (
	"net/url"
)

const (
	// Base URL
	DefaultBaseURL = "http://127.0.0.1:17888"

	// API Endpoints
	StateEndpoint    = "/api/state"
	AdvanceEndpoint  = "/api/scan_next"
	CSVEndpoint      = "/api/csv"
	GroupsEndpoint   = "/api/groups"
	groupStatePath   = "/state"
	groupAdvancePath = "/scan_next"
	groupCSVPath     = "/csv"
)

// Endpoints are the paths of the three board operations.
type Endpoints struct {
	State   string
	Advance string
	CSV     string
}

// DefaultEndpoints is the single board layout served at the root.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		State:   StateEndpoint,
		Advance: AdvanceEndpoint,
		CSV:     CSVEndpoint,
	}
}

// ForGroup returns the endpoints scoped to groupID. An empty id yields the
// default layout.
func ForGroup(groupID string) Endpoints {
	if groupID == "" {
		return DefaultEndpoints()
	}
	prefix := GroupsEndpoint + "/" + url.PathEscape(groupID)
	return Endpoints{
		State:   prefix + groupStatePath,
		Advance: prefix + groupAdvancePath,
		CSV:     prefix + groupCSVPath,
	}
}
