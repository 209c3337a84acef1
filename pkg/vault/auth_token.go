package vault

import (
	"context"
	"net/http"
)

var (
	AuthTokenCreateLocation       = "auth/token/create"
	AuthTokenRenewLocation        = "auth/token/renew/"
	AuthTokenRenewSelfLocation    = "auth/token/renew-self"
	AuthTokenRevokeSelfLocation   = "auth/token/revoke-self"
	AuthTokenRevokeOrphanLocation = "auth/token/revoke-orphan/"
	AuthTokenRevokePrefixLocation = "auth/token/revoke-prefix/"
	AuthTokenRevokeTreeLocation   = "auth/token/revoke/"
	AuthTokenLookupLocation       = "auth/token/lookup"
	AuthTokenLookupSelfLocation   = "auth/token/lookup-self"
)

// AuthToken creates, renews and revokes tokens through the token auth backend.
type AuthToken struct {
	client *Client
}

type renewInput struct {
	Increment int `json:"increment"`
}

// Create submits options as-is, e.g. {"policies": ["default"], "ttl": "1h"}. The returned
// secret carries the new token in Auth.ClientToken.
func (a *AuthToken) Create(ctx context.Context, options map[string]interface{}) (*Secret, error) {
	if options == nil {
		options = map[string]interface{}{}
	}

	return decodeSecret(a.client.do(ctx, http.MethodPost, AuthTokenCreateLocation, nil, options))
}

// Renew extends the lease of token id by increment seconds; 0 leaves it to the server.
func (a *AuthToken) Renew(ctx context.Context, id string, increment int) (*Secret, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	return decodeSecret(a.client.do(ctx, http.MethodPut, AuthTokenRenewLocation+EncodePath(id), nil, &renewInput{Increment: increment}))
}

// RenewSelf renews the token the client is using.
func (a *AuthToken) RenewSelf(ctx context.Context, increment int) (*Secret, error) {
	return decodeSecret(a.client.do(ctx, http.MethodPut, AuthTokenRenewSelfLocation, nil, &renewInput{Increment: increment}))
}

// RevokeSelf revokes the token the client is using and returns the response status,
// normally 204.
func (a *AuthToken) RevokeSelf(ctx context.Context) (int, error) {
	resp, err := a.client.do(ctx, http.MethodPost, AuthTokenRevokeSelfLocation, nil, nil)
	if _, err := checkResponse(resp, err); err != nil {
		return 0, err
	}

	return resp.StatusCode, nil
}

// RevokeOrphan revokes token id only; tokens it created are orphaned, not revoked.
func (a *AuthToken) RevokeOrphan(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}

	return a.revoke(ctx, AuthTokenRevokeOrphanLocation+EncodePath(id))
}

// RevokePrefix revokes everything issued under prefix. It returns true whether or not
// anything matched.
func (a *AuthToken) RevokePrefix(ctx context.Context, prefix string) (bool, error) {
	if prefix == "" {
		return false, ErrEmptyPrefix
	}

	return a.revoke(ctx, AuthTokenRevokePrefixLocation+EncodePath(prefix))
}

// RevokeTree revokes token id and every token created from it.
func (a *AuthToken) RevokeTree(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}

	return a.revoke(ctx, AuthTokenRevokeTreeLocation+EncodePath(id))
}

func (a *AuthToken) revoke(ctx context.Context, location string) (bool, error) {
	if _, err := checkResponse(a.client.do(ctx, http.MethodPut, location, nil, nil)); err != nil {
		return false, err
	}

	return true, nil
}

// LookupSelf returns information about the token the client is using.
func (a *AuthToken) LookupSelf(ctx context.Context) (*Secret, error) {
	return decodeSecret(a.client.do(ctx, http.MethodGet, AuthTokenLookupSelfLocation, nil, nil))
}

// Lookup returns information about token id.
func (a *AuthToken) Lookup(ctx context.Context, id string) (*Secret, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	body := map[string]interface{}{"token": id}
	return decodeSecret(a.client.do(ctx, http.MethodPost, AuthTokenLookupLocation, nil, body))
}
