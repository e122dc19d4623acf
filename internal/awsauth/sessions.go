package awsauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// defaultSessionKey is the registry sentinel for "no profile": ambient
// credential discovery (environment, instance/pod identity, default profile).
const defaultSessionKey = "default"

// Session is a lazily-loading credential context for one named profile.
// Construction is cheap and never fails; the shared-config load happens on
// the first Retrieve, so a misconfigured profile only surfaces on the first
// actual remote call through a client built from it.
type Session struct {
	profile string
	once    sync.Once
	cfg     aws.Config
	err     error
}

// Profile returns the profile name this session was created for, or "" for
// the ambient default session.
func (s *Session) Profile() string {
	return s.profile
}

func (s *Session) load(ctx context.Context) error {
	s.once.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if s.profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(s.profile))
		}
		s.cfg, s.err = awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	return s.err
}

// Retrieve implements aws.CredentialsProvider. The underlying provider from
// LoadDefaultConfig is wrapped in the SDK's credentials cache, so repeated
// calls do not re-read profile configuration.
func (s *Session) Retrieve(ctx context.Context) (aws.Credentials, error) {
	if err := s.load(ctx); err != nil {
		return aws.Credentials{}, fmt.Errorf("loading AWS config for profile %q: %w", s.profile, err)
	}
	if s.cfg.Credentials == nil {
		return aws.Credentials{}, fmt.Errorf("no credentials available for profile %q", s.profile)
	}
	return s.cfg.Credentials.Retrieve(ctx)
}

// SessionRegistry caches Sessions so repeated calls with the same profile
// name share one credential context for the process lifetime.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// GetSession returns the session for the given profile, creating it on first
// use. An empty profile keys the ambient default session. Never fails.
func (r *SessionRegistry) GetSession(profile string) *Session {
	key := profile
	if key == "" {
		key = defaultSessionKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[key]; ok {
		recordSessionCache("hit")
		return sess
	}
	sess := &Session{profile: profile}
	r.sessions[key] = sess
	recordSessionCache("miss")
	return sess
}

// Invalidate drops the cached session for the given profile.
func (r *SessionRegistry) Invalidate(profile string) {
	key := profile
	if key == "" {
		key = defaultSessionKey
	}
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

// Reset drops all cached sessions.
func (r *SessionRegistry) Reset() {
	r.mu.Lock()
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
}
