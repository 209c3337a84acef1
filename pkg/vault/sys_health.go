package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

var (
	SysHealthLocation = "sys/health"

	// sys/health encodes the node state in the status code and still returns a body.
	SysHealthStatusCodes = []int{
		http.StatusOK,
		http.StatusTooManyRequests, // unsealed standby
		472,                        // disaster recovery secondary
		473,                        // performance standby
		http.StatusNotImplemented,  // not initialized
		http.StatusServiceUnavailable,
	}
)

type HealthStatus struct {
	Initialized   bool   `json:"initialized" yaml:"initialized"`
	Sealed        bool   `json:"sealed" yaml:"sealed"`
	Standby       bool   `json:"standby" yaml:"standby"`
	Version       string `json:"version" yaml:"version"`
	ClusterName   string `json:"cluster_name" yaml:"cluster_name"`
	ServerTimeUTC int64  `json:"server_time_utc" yaml:"server_time_utc"`
}

// Ready is true for an initialized, unsealed, active node.
func (i *HealthStatus) Ready() bool {
	return i.Initialized && !i.Sealed && !i.Standby
}

// NotReadyReason describes why Ready is false, or returns nil.
func (i *HealthStatus) NotReadyReason() error {
	switch {
	case !i.Initialized:
		return fmt.Errorf("expected vault to be initialized")
	case i.Sealed:
		return fmt.Errorf("expected vault to be unsealed")
	case i.Standby:
		return fmt.Errorf("expected vault to be the active node")
	}

	return nil
}

// Sys covers the parts of the sys backend the client needs.
type Sys struct {
	client *Client
}

// Health fetches the node status. Sealed or standby nodes are not an error.
func (s *Sys) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := s.client.do(ctx, http.MethodGet, SysHealthLocation, nil, nil)
	if err := checkResponseStatus(resp, err, SysHealthStatusCodes...); err != nil {
		return nil, err
	}

	health := new(HealthStatus)
	if err := json.Unmarshal(resp.Body, health); err != nil {
		return nil, fmt.Errorf("could not decode health status: %w", err)
	}

	return health, nil
}
