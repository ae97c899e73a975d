package service

import (
	"strconv"

	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// ProviderRegistry resolves provider names to their clients.
type ProviderRegistry struct {
	providers map[oauthDomain.Provider]ProviderClient
}

// NewProviderRegistry creates a registry over the given clients.
func NewProviderRegistry(clients ...ProviderClient) *ProviderRegistry {
	providers := make(map[oauthDomain.Provider]ProviderClient, len(clients))
	for _, client := range clients {
		providers[client.Name()] = client
	}
	return &ProviderRegistry{providers: providers}
}

// Get returns the client for the provider, or ErrUnknownProvider.
func (r *ProviderRegistry) Get(provider oauthDomain.Provider) (ProviderClient, error) {
	client, ok := r.providers[provider]
	if !ok {
		return nil, oauthDomain.ErrUnknownProvider
	}
	return client, nil
}

func strconvInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
