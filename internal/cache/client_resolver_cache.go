package cache

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const defaultClientTTL = 10 * time.Minute

// ClientResolverCache stores hot-path phone-to-client lookups for message
// ingest.
type ClientResolverCache interface {
	GetClient(accountID snowflake.ID, phone string) (snowflake.ID, bool)
	SetClient(accountID snowflake.ID, phone string, clientID snowflake.ID)
}

type clientResolverCache struct {
	clients Cache[string, snowflake.ID]
	ttl     time.Duration
}

// NewClientResolverCache returns an in-memory cache tuned for message ingest.
func NewClientResolverCache() ClientResolverCache {
	return &clientResolverCache{
		clients: NewTTLCache[string, snowflake.ID](),
		ttl:     defaultClientTTL,
	}
}

func (c *clientResolverCache) GetClient(accountID snowflake.ID, phone string) (snowflake.ID, bool) {
	return c.clients.Get(cacheKey(accountID.String(), phone))
}

func (c *clientResolverCache) SetClient(accountID snowflake.ID, phone string, clientID snowflake.ID) {
	if clientID == 0 {
		return
	}
	c.clients.Set(cacheKey(accountID.String(), phone), clientID, c.ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
