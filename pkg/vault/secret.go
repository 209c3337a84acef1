package vault

import (
	"encoding/json"
	"time"
)

// Secret is one decoded response envelope. The client never mutates a Secret after decoding it.
type Secret struct {
	RequestID     string                 `json:"request_id" yaml:"request_id"`
	LeaseID       string                 `json:"lease_id" yaml:"lease_id"`
	LeaseDuration int                    `json:"lease_duration" yaml:"lease_duration"`
	Renewable     bool                   `json:"renewable" yaml:"renewable"`
	Data          map[string]interface{} `json:"data" yaml:"data"`
	Warnings      []string               `json:"warnings" yaml:"warnings"`
	Auth          *SecretAuth            `json:"auth" yaml:"auth"`
	WrapInfo      *SecretWrapInfo        `json:"wrap_info" yaml:"wrap_info"`

	raw map[string]json.RawMessage
}

// SecretAuth is the auth block of a token or login response.
type SecretAuth struct {
	ClientToken      string            `json:"client_token" yaml:"client_token"`
	Accessor         string            `json:"accessor" yaml:"accessor"`
	Policies         []string          `json:"policies" yaml:"policies"`
	TokenPolicies    []string          `json:"token_policies,omitempty" yaml:"token_policies,omitempty"`
	IdentityPolicies []string          `json:"identity_policies,omitempty" yaml:"identity_policies,omitempty"`
	Metadata         map[string]string `json:"metadata" yaml:"metadata"`
	LeaseDuration    int               `json:"lease_duration" yaml:"lease_duration"`
	Renewable        bool              `json:"renewable" yaml:"renewable"`
	EntityID         string            `json:"entity_id" yaml:"entity_id"`
	Orphan           bool              `json:"orphan" yaml:"orphan"`
}

// SecretWrapInfo is present when the response was response-wrapped.
type SecretWrapInfo struct {
	Token           string    `json:"token" yaml:"token"`
	Accessor        string    `json:"accessor" yaml:"accessor"`
	TTL             int       `json:"ttl" yaml:"ttl"`
	CreationTime    time.Time `json:"creation_time" yaml:"creation_time"`
	CreationPath    string    `json:"creation_path" yaml:"creation_path"`
	WrappedAccessor string    `json:"wrapped_accessor" yaml:"wrapped_accessor"`
}

var secretFields = []string{
	"request_id",
	"lease_id",
	"lease_duration",
	"renewable",
	"data",
	"warnings",
	"auth",
	"wrap_info",
}

func (s *Secret) UnmarshalJSON(b []byte) error {
	type envelope Secret

	var decoded envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	for _, name := range secretFields {
		delete(fields, name)
	}

	*s = Secret(decoded)
	if len(fields) > 0 {
		s.raw = fields
	}

	return nil
}

// Raw returns the top-level fields of the envelope this type has no field for.
func (s *Secret) Raw() map[string]json.RawMessage {
	raw := make(map[string]json.RawMessage, len(s.raw))
	for k, v := range s.raw {
		raw[k] = v
	}

	return raw
}

// TokenID is the token this secret describes: the auth client token for create/renew/login
// responses, data.id for lookups.
func (s *Secret) TokenID() string {
	if s.Auth != nil && s.Auth.ClientToken != "" {
		return s.Auth.ClientToken
	}

	if id, ok := s.Data["id"].(string); ok {
		return id
	}

	return ""
}

// TTL is the lease duration of the secret, or of its auth block when the top level has none.
func (s *Secret) TTL() time.Duration {
	if s.LeaseDuration == 0 && s.Auth != nil {
		return time.Duration(s.Auth.LeaseDuration) * time.Second
	}

	return time.Duration(s.LeaseDuration) * time.Second
}

// IsRenewable reports renewability of the secret or its auth block.
func (s *Secret) IsRenewable() bool {
	return s.Renewable || (s.Auth != nil && s.Auth.Renewable)
}
