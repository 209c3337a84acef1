package vault

import (
	"context"
	"net/http"
)

var (
	AuthApproleLoginLocation = "auth/approle/login"
)

type ApproleLoginInput struct {
	RoleId   string `json:"role_id"`
	SecretId string `json:"secret_id"`
}

func (i *ApproleLoginInput) Validate() error {
	if i.RoleId == "" {
		return ErrEmptyRoleId
	}

	if i.SecretId == "" {
		return ErrEmptySecretId
	}

	return nil
}

// AppRole logs in through the approle auth backend.
type AppRole struct {
	client *Client
}

// Login exchanges a role id and secret id for a token. The client's own token is left alone;
// callers that want to use the new token pass Auth.ClientToken to SetToken.
func (a *AppRole) Login(ctx context.Context, roleId, secretId string) (*Secret, error) {
	input := &ApproleLoginInput{RoleId: roleId, SecretId: secretId}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return decodeSecret(a.client.do(ctx, http.MethodPost, AuthApproleLoginLocation, nil, input))
}
