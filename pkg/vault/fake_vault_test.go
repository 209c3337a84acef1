package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Indellient/vault-client/pkg/config"
)

const (
	fakeRootToken = "root"
	fakeRoleId    = "dead-beef"
	fakeSecretId  = "ea7-beef"
	fakeTokenTTL  = 3600
)

// fakeVault is an in-memory stand-in for the parts of the vault HTTP API the client talks to:
// a kv v1 style logical backend, the token backend, approle login and sys/health.
type fakeVault struct {
	mu      sync.Mutex
	secrets map[string]map[string]interface{}
	tokens  map[string]*fakeToken
	uris    []string
	issued  int
}

type fakeToken struct {
	id       string
	parent   string
	policies []string
	ttl      int
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		secrets: map[string]map[string]interface{}{},
		tokens: map[string]*fakeToken{
			fakeRootToken: {id: fakeRootToken, policies: []string{"root"}},
		},
	}
}

// newFakeVaultClient starts a fakeVault and returns a Client using the root token against it.
func newFakeVaultClient(t *testing.T, opts ...Option) (*fakeVault, *Client) {
	t.Helper()

	fake := newFakeVault()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(testConfig(server.URL, fakeRootToken), opts...)
	require.NoError(t, err)

	return fake, client
}

func testConfig(address, token string) *config.Config {
	cfg := config.Default()
	cfg.Address = address
	cfg.Token = token
	cfg.MaxRetries = 0
	return cfg
}

func (f *fakeVault) requestURIs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.uris...)
}

func (f *fakeVault) hasToken(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.tokens[id]
	return ok
}

func (f *fakeVault) addToken(id, parent string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens[id] = &fakeToken{id: id, parent: parent, policies: []string{"default"}, ttl: fakeTokenTTL}
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uris = append(f.uris, r.RequestURI)

	if !strings.HasPrefix(r.URL.Path, "/v1/") {
		writeErrors(w, http.StatusNotFound)
		return
	}
	p := strings.TrimPrefix(r.URL.Path, "/v1/")

	switch p {
	case "sys/health":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"initialized":     true,
			"sealed":          false,
			"standby":         false,
			"version":         "1.15.0",
			"cluster_name":    "fake-cluster",
			"server_time_utc": 1700000000,
		})
		return
	case "auth/approle/login":
		f.approleLogin(w, r)
		return
	}

	caller, ok := f.tokens[r.Header.Get(HeaderToken)]
	if !ok {
		writeErrors(w, http.StatusForbidden, "permission denied")
		return
	}

	if strings.HasPrefix(p, "auth/token/") {
		f.token(w, r, caller, strings.TrimPrefix(p, "auth/token/"))
		return
	}

	f.logical(w, r, p)
}

func (f *fakeVault) logical(w http.ResponseWriter, r *http.Request, p string) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("list") == "true" {
			f.list(w, p)
			return
		}

		data, ok := f.secrets[p]
		if !ok {
			writeErrors(w, http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"request_id":     "req-" + p,
			"lease_id":       "",
			"renewable":      false,
			"lease_duration": 2764800,
			"data":           data,
			"wrap_info":      nil,
			"warnings":       nil,
			"auth":           nil,
		})

	case http.MethodPut, http.MethodPost:
		var data map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeErrors(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}

		f.secrets[p] = data
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		delete(f.secrets, p)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (f *fakeVault) list(w http.ResponseWriter, p string) {
	prefix := strings.TrimSuffix(p, "/") + "/"

	seen := map[string]bool{}
	keys := []string{}
	for name := range f.secrets {
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		key := strings.TrimPrefix(name, prefix)
		if i := strings.Index(key, "/"); i >= 0 {
			key = key[:i+1]
		}

		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		writeErrors(w, http.StatusNotFound)
		return
	}

	sort.Strings(keys)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"keys": keys},
	})
}

func (f *fakeVault) token(w http.ResponseWriter, r *http.Request, caller *fakeToken, op string) {
	switch {
	case op == "create" && r.Method == http.MethodPost:
		var options map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&options); err != nil {
			writeErrors(w, http.StatusBadRequest, "failed to parse JSON input")
			return
		}

		f.issued++
		token := &fakeToken{id: fmt.Sprintf("s.fake%03d", f.issued), parent: caller.id, policies: []string{"default"}, ttl: fakeTokenTTL}
		if id, ok := options["id"].(string); ok && id != "" {
			token.id = id
		}
		if noParent, ok := options["no_parent"].(bool); ok && noParent {
			token.parent = ""
		}
		if policies, ok := options["policies"].([]interface{}); ok {
			token.policies = nil
			for _, policy := range policies {
				token.policies = append(token.policies, fmt.Sprint(policy))
			}
		}

		f.tokens[token.id] = token
		writeAuth(w, token)

	case op == "renew-self" && r.Method == http.MethodPut:
		if !decodeIncrement(w, r) {
			return
		}
		if caller.ttl == 0 {
			writeErrors(w, http.StatusBadRequest, "lease is not renewable")
			return
		}
		writeAuth(w, caller)

	case strings.HasPrefix(op, "renew/") && r.Method == http.MethodPut:
		if !decodeIncrement(w, r) {
			return
		}
		token, ok := f.tokens[strings.TrimPrefix(op, "renew/")]
		if !ok {
			writeErrors(w, http.StatusBadRequest, "invalid token")
			return
		}
		writeAuth(w, token)

	case op == "revoke-self" && r.Method == http.MethodPost:
		f.revokeTree(caller.id)
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(op, "revoke-orphan/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(op, "revoke-orphan/")
		for _, token := range f.tokens {
			if token.parent == id {
				token.parent = ""
			}
		}
		delete(f.tokens, id)
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(op, "revoke-prefix/") && r.Method == http.MethodPut:
		prefix := strings.TrimPrefix(op, "revoke-prefix/")
		for id := range f.tokens {
			if strings.HasPrefix(id, prefix) {
				f.revokeTree(id)
			}
		}
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(op, "revoke/") && r.Method == http.MethodPut:
		f.revokeTree(strings.TrimPrefix(op, "revoke/"))
		w.WriteHeader(http.StatusNoContent)

	case op == "lookup-self" && r.Method == http.MethodGet:
		writeLookup(w, caller)

	case op == "lookup" && r.Method == http.MethodPost:
		var input struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeErrors(w, http.StatusBadRequest, "failed to parse JSON input")
			return
		}
		token, ok := f.tokens[input.Token]
		if !ok {
			writeErrors(w, http.StatusForbidden, "bad token")
			return
		}
		writeLookup(w, token)

	default:
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (f *fakeVault) revokeTree(id string) {
	delete(f.tokens, id)

	for childId, token := range f.tokens {
		if token.parent == id {
			f.revokeTree(childId)
		}
	}
}

func (f *fakeVault) approleLogin(w http.ResponseWriter, r *http.Request) {
	var input ApproleLoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to parse JSON input")
		return
	}

	if input.RoleId != fakeRoleId || input.SecretId != fakeSecretId {
		writeErrors(w, http.StatusBadRequest, "invalid role or secret ID")
		return
	}

	f.issued++
	token := &fakeToken{id: fmt.Sprintf("s.approle%03d", f.issued), policies: []string{"default", "app"}, ttl: fakeTokenTTL}
	f.tokens[token.id] = token
	writeAuth(w, token)
}

func decodeIncrement(w http.ResponseWriter, r *http.Request) bool {
	var input map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to parse JSON input")
		return false
	}

	if _, ok := input["increment"]; !ok {
		writeErrors(w, http.StatusBadRequest, "missing increment")
		return false
	}

	return true
}

func writeAuth(w http.ResponseWriter, token *fakeToken) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id":     "req-" + token.id,
		"lease_id":       "",
		"renewable":      false,
		"lease_duration": 0,
		"data":           nil,
		"wrap_info":      nil,
		"warnings":       nil,
		"auth": map[string]interface{}{
			"client_token":   token.id,
			"accessor":       "accessor-" + token.id,
			"policies":       token.policies,
			"token_policies": token.policies,
			"metadata":       map[string]string{"issuer": "fake"},
			"lease_duration": token.ttl,
			"renewable":      token.ttl > 0,
			"entity_id":      "",
			"orphan":         token.parent == "",
		},
	})
}

func writeLookup(w http.ResponseWriter, token *fakeToken) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id":     "req-lookup-" + token.id,
		"lease_id":       "",
		"renewable":      false,
		"lease_duration": 0,
		"data": map[string]interface{}{
			"id":       token.id,
			"policies": token.policies,
			"ttl":      token.ttl,
			"orphan":   token.parent == "",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, map[string]interface{}{"errors": append([]string{}, messages...)})
}

// recordingTransport hands back canned responses and remembers every request it was given.
type recordingTransport struct {
	mu        sync.Mutex
	requests  []*Request
	responses []*RawResponse
	err       error
}

func (r *recordingTransport) Do(ctx context.Context, req *Request) (*RawResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}

	if len(r.responses) == 0 {
		return &RawResponse{StatusCode: http.StatusNoContent}, nil
	}

	resp := r.responses[0]
	if len(r.responses) > 1 {
		r.responses = r.responses[1:]
	}

	return resp, nil
}

func (r *recordingTransport) last() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.requests) == 0 {
		return nil
	}

	return r.requests[len(r.requests)-1]
}

func newRecordingClient(t *testing.T, responses ...*RawResponse) (*recordingTransport, *Client) {
	t.Helper()

	transport := &recordingTransport{responses: responses}
	client, err := NewClient(testConfig("http://127.0.0.1:8200", "dead-c0de"), WithTransport(transport))
	require.NoError(t, err)

	return transport, client
}

func jsonResponse(status int, body string) *RawResponse {
	return &RawResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}
