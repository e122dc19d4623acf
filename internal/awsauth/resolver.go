// Package awsauth turns per-call authentication hints (named profile,
// cross-account role ARN, or ambient credentials) into reusable AWS service
// clients. It owns three process-wide caches: assumed-role credentials,
// profile sessions, and constructed clients.
package awsauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/systmms/awsops/internal/errors"
	"github.com/systmms/awsops/internal/logging"
)

// STSClientAPI defines the interface for STS operations.
// This allows for mocking in tests.
type STSClientAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

const (
	// roleSessionName is the fixed session name used for every AssumeRole call.
	roleSessionName = "MCPSession"

	// roleDurationSeconds is the fixed requested lifetime of assumed-role
	// credentials.
	roleDurationSeconds = 3600
)

// ExpiryCheck reports whether cached credentials should be considered stale
// at the given instant.
type ExpiryCheck func(creds aws.Credentials, now time.Time) bool

// NeverExpires is the default expiry check: cached credentials are reused
// for the process lifetime, even past their STS expiration. Swap in a real
// check via WithExpiryCheck to change that.
func NeverExpires(aws.Credentials, time.Time) bool {
	return false
}

// Resolver exchanges role ARNs for temporary credentials via STS AssumeRole
// and caches the resulting triples keyed by role ARN only.
type Resolver struct {
	mu      sync.RWMutex
	client  STSClientAPI
	logger  *logging.Logger
	creds   map[string]aws.Credentials
	group   singleflight.Group
	expired ExpiryCheck
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithExpiryCheck replaces the default never-expires cache policy.
func WithExpiryCheck(check ExpiryCheck) ResolverOption {
	return func(r *Resolver) {
		r.expired = check
	}
}

// NewResolver creates a credential resolver backed by the given STS client.
func NewResolver(client STSClientAPI, logger *logging.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:  client,
		logger:  logger,
		creds:   make(map[string]aws.Credentials),
		expired: NeverExpires,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns cached credentials for roleArn, assuming the role on a
// cache miss. Concurrent misses for the same role are collapsed into one
// AssumeRole call.
func (r *Resolver) Resolve(ctx context.Context, roleArn string) (aws.Credentials, error) {
	if creds, ok := r.cached(roleArn); ok {
		return creds, nil
	}

	v, err, _ := r.group.Do(roleArn, func() (interface{}, error) {
		// Another caller may have populated the cache while this one
		// waited on the flight group.
		if creds, ok := r.cached(roleArn); ok {
			return creds, nil
		}
		return r.assumeRole(ctx, roleArn)
	})
	if err != nil {
		return aws.Credentials{}, err
	}
	return v.(aws.Credentials), nil
}

func (r *Resolver) cached(roleArn string) (aws.Credentials, bool) {
	r.mu.RLock()
	creds, ok := r.creds[roleArn]
	r.mu.RUnlock()
	if !ok || r.expired(creds, time.Now()) {
		return aws.Credentials{}, false
	}
	return creds, true
}

func (r *Resolver) assumeRole(ctx context.Context, roleArn string) (aws.Credentials, error) {
	r.logger.Debug("assuming role: %s", roleArn)

	out, err := r.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(roleSessionName),
		DurationSeconds: aws.Int32(roleDurationSeconds),
	})
	if err != nil {
		recordAssumeRole("error")
		r.logger.Error("failed to assume role %s: %v", roleArn, err)
		return aws.Credentials{}, newAssumeRoleError(roleArn, err)
	}

	creds := aws.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Source:          "AssumeRole",
	}
	if out.Credentials.Expiration != nil {
		creds.CanExpire = true
		creds.Expires = *out.Credentials.Expiration
	}

	r.mu.Lock()
	r.creds[roleArn] = creds
	r.mu.Unlock()

	recordAssumeRole("success")
	r.logger.Info("successfully assumed role: %s", roleArn)
	return creds, nil
}

// Invalidate drops the cached credentials for roleArn.
func (r *Resolver) Invalidate(roleArn string) {
	r.mu.Lock()
	delete(r.creds, roleArn)
	r.mu.Unlock()
}

// Reset drops all cached credentials.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.creds = make(map[string]aws.Credentials)
	r.mu.Unlock()
}

// newAssumeRoleError wraps an STS rejection with the provider code and
// message when available.
func newAssumeRoleError(roleArn string, err error) *apperrors.AssumeRoleError {
	are := &apperrors.AssumeRoleError{
		RoleArn: roleArn,
		Err:     err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		are.Code = apiErr.ErrorCode()
		are.Message = apiErr.ErrorMessage()
	}
	return are
}
