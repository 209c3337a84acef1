package vault

import (
	"github.com/Indellient/vault-client/pkg/config"
)

// NewClient validates cfg and creates a Client. Unless WithTransport is given, requests go
// through a RestyTransport built from cfg.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	client := &Client{config: cfg}
	client.SetToken(cfg.Token)

	for _, opt := range opts {
		opt(client)
	}

	if client.transport == nil {
		client.transport = NewRestyTransport(cfg, client.metrics)
	}

	return client, nil
}
