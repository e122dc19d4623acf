package awsauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/systmms/awsops/internal/logging"
)

// ClientFactory builds a service client from a resolved AWS config.
type ClientFactory func(service string, cfg aws.Config) (interface{}, error)

// DefaultClientFactory builds real AWS SDK clients.
func DefaultClientFactory(service string, cfg aws.Config) (interface{}, error) {
	switch service {
	case "secretsmanager":
		return secretsmanager.NewFromConfig(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported AWS service %q", service)
	}
}

// clientKey identifies one cached client. Profile and role are each
// independently part of the key even though only one drives construction
// when both are supplied.
type clientKey struct {
	service string
	profile string
	roleArn string
	region  string
}

// ClientCache caches constructed service clients keyed by
// (service, profile, role, resolved region).
//
// Construction precedence: a non-empty profile wins and the role ARN is
// ignored entirely, even an invalid one; otherwise a non-empty role ARN is
// resolved to temporary credentials; otherwise ambient default discovery.
type ClientCache struct {
	mu            sync.RWMutex
	clients       map[clientKey]interface{}
	resolver      *Resolver
	sessions      *SessionRegistry
	factory       ClientFactory
	defaultRegion string
	logger        *logging.Logger
}

// NewClientCache creates a client cache wired to the given resolver and
// session registry.
func NewClientCache(resolver *Resolver, sessions *SessionRegistry, factory ClientFactory, defaultRegion string, logger *logging.Logger) *ClientCache {
	return &ClientCache{
		clients:       make(map[clientKey]interface{}),
		resolver:      resolver,
		sessions:      sessions,
		factory:       factory,
		defaultRegion: defaultRegion,
		logger:        logger,
	}
}

// GetClient returns a cached client for the authentication context, building
// one on a miss. Role-assumption failures propagate as *AssumeRoleError;
// profile misconfiguration surfaces lazily on the first remote call through
// the returned client, not here.
func (c *ClientCache) GetClient(ctx context.Context, service, roleArn, region, profile string) (interface{}, error) {
	resolvedRegion := region
	if resolvedRegion == "" {
		resolvedRegion = c.defaultRegion
	}
	key := clientKey{service: service, profile: profile, roleArn: roleArn, region: resolvedRegion}

	c.mu.RLock()
	client, ok := c.clients[key]
	c.mu.RUnlock()
	if ok {
		recordClientCache(service, "hit")
		return client, nil
	}
	recordClientCache(service, "miss")

	cfg, err := c.buildConfig(ctx, roleArn, resolvedRegion, profile)
	if err != nil {
		return nil, err
	}

	client, err = c.factory(service, cfg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Two concurrent misses may both construct; the first insert wins so
	// every caller shares one entry.
	if existing, ok := c.clients[key]; ok {
		return existing, nil
	}
	c.clients[key] = client
	c.logger.Debug("created %s client in %s (role: %s, profile: %s)",
		service, resolvedRegion, orDefault(roleArn), orDefault(profile))
	return client, nil
}

func (c *ClientCache) buildConfig(ctx context.Context, roleArn, region, profile string) (aws.Config, error) {
	switch {
	case profile != "":
		return aws.Config{
			Region:      region,
			Credentials: c.sessions.GetSession(profile),
		}, nil

	case roleArn != "":
		creds, err := c.resolver.Resolve(ctx, roleArn)
		if err != nil {
			return aws.Config{}, err
		}
		return aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		}, nil

	default:
		return aws.Config{
			Region:      region,
			Credentials: c.sessions.GetSession(""),
		}, nil
	}
}

// Clear invalidates cached state. A non-empty roleArn clears that role's
// credentials and any client entries keyed with it; otherwise a non-empty
// profile clears that profile's session and client entries; with neither,
// everything is wiped. When both are supplied the role branch wins, which is
// deliberately asymmetric with the profile-wins rule used at resolution time.
func (c *ClientCache) Clear(roleArn, profile string) {
	switch {
	case roleArn != "":
		c.resolver.Invalidate(roleArn)
		c.dropClients(func(k clientKey) bool { return k.roleArn == roleArn })

	case profile != "":
		c.sessions.Invalidate(profile)
		c.dropClients(func(k clientKey) bool { return k.profile == profile })

	default:
		c.mu.Lock()
		c.clients = make(map[clientKey]interface{})
		c.mu.Unlock()
		c.resolver.Reset()
		c.sessions.Reset()
	}
}

func (c *ClientCache) dropClients(match func(clientKey) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.clients {
		if match(key) {
			delete(c.clients, key)
		}
	}
}

// Len returns the number of cached clients.
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}

func orDefault(s string) string {
	if s == "" {
		return "default"
	}
	return s
}
