// Package secrets is the thin facade over AWS Secrets Manager: each
// operation obtains a client for the call's authentication context, issues
// one remote call, and translates the response into a uniform result shape.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/systmms/awsops/internal/awsauth"
	apperrors "github.com/systmms/awsops/internal/errors"
	"github.com/systmms/awsops/internal/logging"
)

// SecretsManagerAPI defines the interface for AWS Secrets Manager operations.
// This allows for mocking in tests.
type SecretsManagerAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	RestoreSecret(ctx context.Context, params *secretsmanager.RestoreSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.RestoreSecretOutput, error)
	TagResource(ctx context.Context, params *secretsmanager.TagResourceInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.TagResourceOutput, error)
	UntagResource(ctx context.Context, params *secretsmanager.UntagResourceInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UntagResourceOutput, error)
}

const (
	serviceName = "secretsmanager"

	// maxPageSize is the hard per-page ceiling enforced regardless of the
	// caller-requested result count.
	maxPageSize = 100

	// defaultMaxResults caps list accumulation when the caller does not ask
	// for a specific count.
	defaultMaxResults = 500

	// defaultRecoveryWindowDays applies when a delete neither forces
	// immediate removal nor names a window.
	defaultRecoveryWindowDays = 30
)

// CallOptions selects the authentication context for one operation.
// Profile takes precedence over RoleArn when both are set.
type CallOptions struct {
	RoleArn string
	Region  string
	Profile string
}

// Service executes Secrets Manager operations across accounts.
type Service struct {
	clients       *awsauth.ClientCache
	logger        *logging.Logger
	defaultRegion string
}

// NewService creates the facade on top of the given client cache.
func NewService(clients *awsauth.ClientCache, logger *logging.Logger, defaultRegion string) *Service {
	return &Service{
		clients:       clients,
		logger:        logger,
		defaultRegion: defaultRegion,
	}
}

// ClearCache invalidates cached authentication state; see
// awsauth.ClientCache.Clear for scoping semantics.
func (s *Service) ClearCache(roleArn, profile string) {
	s.clients.Clear(roleArn, profile)
}

func (s *Service) client(ctx context.Context, opts CallOptions) (SecretsManagerAPI, error) {
	v, err := s.clients.GetClient(ctx, serviceName, opts.RoleArn, opts.Region, opts.Profile)
	if err != nil {
		return nil, err
	}
	client, ok := v.(SecretsManagerAPI)
	if !ok {
		return nil, fmt.Errorf("client cache returned %T for %s", v, serviceName)
	}
	return client, nil
}

func (s *Service) region(opts CallOptions) string {
	if opts.Region != "" {
		return opts.Region
	}
	return s.defaultRegion
}

// apiFailure extracts the provider code and message when err represents an
// AWS API rejection (including a rejected AssumeRole during client
// construction). Other errors are unexpected local faults and stay errors.
func apiFailure(err error) (code, message string, ok bool) {
	var are *apperrors.AssumeRoleError
	if errors.As(err, &are) {
		msg := are.Message
		if msg == "" {
			msg = are.Error()
		}
		return are.Code, msg, true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode(), apiErr.ErrorMessage(), true
	}
	return "", "", false
}

// remoteErr wraps an unclassified remote fault (transport failure, codec
// error) with the failing operation name.
func remoteErr(operation string, err error) error {
	return &apperrors.RemoteCallError{Operation: operation, Err: err}
}

// CreateSecretInput are the parameters for CreateSecret.
type CreateSecretInput struct {
	Name        string
	SecretValue string
	Description string
	Tags        map[string]string
	CallOptions
}

// CreateSecret creates a new secret.
func (s *Service) CreateSecret(ctx context.Context, in CreateSecretInput) (*CreateSecretResult, error) {
	fail := func(code, msg string) *CreateSecretResult {
		return &CreateSecretResult{Error: msg, ErrorCode: code, SecretName: in.Name}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	s.logger.Debug("creating secret %s (value: %s)", in.Name, logging.Secret(in.SecretValue))

	params := &secretsmanager.CreateSecretInput{
		Name:         aws.String(in.Name),
		SecretString: aws.String(in.SecretValue),
	}
	if in.Description != "" {
		params.Description = aws.String(in.Description)
	}
	if len(in.Tags) > 0 {
		params.Tags = toTags(in.Tags)
	}

	out, err := client.CreateSecret(ctx, params)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("CreateSecret", err)
	}

	return &CreateSecretResult{
		Success:    true,
		SecretName: aws.ToString(out.Name),
		SecretARN:  aws.ToString(out.ARN),
		VersionID:  aws.ToString(out.VersionId),
		Region:     s.region(in.CallOptions),
	}, nil
}

// GetSecretValueInput are the parameters for GetSecretValue.
type GetSecretValueInput struct {
	SecretID     string
	VersionID    string
	VersionStage string
	CallOptions
}

// GetSecretValue retrieves a secret's value, reporting whether it parsed as
// JSON.
func (s *Service) GetSecretValue(ctx context.Context, in GetSecretValueInput) (*GetSecretValueResult, error) {
	fail := func(code, msg string) *GetSecretValueResult {
		return &GetSecretValueResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	params := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(in.SecretID),
	}
	if in.VersionID != "" {
		params.VersionId = aws.String(in.VersionID)
	}
	if in.VersionStage != "" {
		params.VersionStage = aws.String(in.VersionStage)
	}

	out, err := client.GetSecretValue(ctx, params)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("GetSecretValue", err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" && len(out.SecretBinary) > 0 {
		raw = string(out.SecretBinary)
	}

	value, isJSON := parseSecretValue(raw)

	return &GetSecretValueResult{
		Success:       true,
		SecretName:    aws.ToString(out.Name),
		SecretARN:     aws.ToString(out.ARN),
		SecretValue:   value,
		IsJSON:        isJSON,
		VersionID:     aws.ToString(out.VersionId),
		VersionStages: out.VersionStages,
		CreatedDate:   formatTime(out.CreatedDate),
	}, nil
}

// parseSecretValue attempts to decode raw as JSON, returning the decoded
// form on success and the raw string otherwise.
func parseSecretValue(raw string) (interface{}, bool) {
	if raw == "" {
		return raw, false
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw, false
	}
	return parsed, true
}

// UpdateSecretInput are the parameters for UpdateSecret.
type UpdateSecretInput struct {
	SecretID    string
	SecretValue string
	Description string
	CallOptions
}

// UpdateSecret replaces an existing secret's value.
func (s *Service) UpdateSecret(ctx context.Context, in UpdateSecretInput) (*UpdateSecretResult, error) {
	fail := func(code, msg string) *UpdateSecretResult {
		return &UpdateSecretResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	s.logger.Debug("updating secret %s (value: %s)", in.SecretID, logging.Secret(in.SecretValue))

	params := &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(in.SecretID),
		SecretString: aws.String(in.SecretValue),
	}
	if in.Description != "" {
		params.Description = aws.String(in.Description)
	}

	out, err := client.UpdateSecret(ctx, params)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("UpdateSecret", err)
	}

	return &UpdateSecretResult{
		Success:    true,
		SecretName: aws.ToString(out.Name),
		SecretARN:  aws.ToString(out.ARN),
		VersionID:  aws.ToString(out.VersionId),
		Region:     s.region(in.CallOptions),
	}, nil
}

// DeleteSecretInput are the parameters for DeleteSecret.
type DeleteSecretInput struct {
	SecretID                   string
	RecoveryWindowInDays       int64
	ForceDeleteWithoutRecovery bool
	CallOptions
}

// DeleteSecret schedules a secret for deletion, or removes it immediately
// when ForceDeleteWithoutRecovery is set.
func (s *Service) DeleteSecret(ctx context.Context, in DeleteSecretInput) (*DeleteSecretResult, error) {
	fail := func(code, msg string) *DeleteSecretResult {
		return &DeleteSecretResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	params := &secretsmanager.DeleteSecretInput{
		SecretId: aws.String(in.SecretID),
	}
	if in.ForceDeleteWithoutRecovery {
		params.ForceDeleteWithoutRecovery = aws.Bool(true)
	} else {
		window := in.RecoveryWindowInDays
		if window == 0 {
			window = defaultRecoveryWindowDays
		}
		params.RecoveryWindowInDays = aws.Int64(window)
	}

	out, err := client.DeleteSecret(ctx, params)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("DeleteSecret", err)
	}

	return &DeleteSecretResult{
		Success:      true,
		SecretName:   aws.ToString(out.Name),
		SecretARN:    aws.ToString(out.ARN),
		DeletionDate: formatTime(out.DeletionDate),
		ForceDeleted: in.ForceDeleteWithoutRecovery,
	}, nil
}

// ListSecretsInput are the parameters for ListSecrets.
type ListSecretsInput struct {
	NamePrefix             string
	MaxResults             int
	IncludePlannedDeletion bool
	CallOptions
}

// ListSecrets pages through secrets until MaxResults items are accumulated
// or the API reports no further pages. Page size never exceeds maxPageSize.
func (s *Service) ListSecrets(ctx context.Context, in ListSecretsInput) (*ListSecretsResult, error) {
	fail := func(code, msg string) *ListSecretsResult {
		return &ListSecretsResult{Error: msg, ErrorCode: code}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	maxResults := in.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	pageSize := maxResults
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(int32(pageSize)),
	}
	if in.NamePrefix != "" {
		params.Filters = []types.Filter{{
			Key:    types.FilterNameStringTypeName,
			Values: []string{in.NamePrefix},
		}}
	}
	if in.IncludePlannedDeletion {
		params.IncludePlannedDeletion = aws.Bool(true)
	}

	var summaries []SecretSummary
	for {
		out, err := client.ListSecrets(ctx, params)
		if err != nil {
			if code, msg, ok := apiFailure(err); ok {
				return fail(code, msg), nil
			}
			return nil, remoteErr("ListSecrets", err)
		}

		for _, entry := range out.SecretList {
			summaries = append(summaries, SecretSummary{
				Name:             aws.ToString(entry.Name),
				ARN:              aws.ToString(entry.ARN),
				Description:      aws.ToString(entry.Description),
				LastChangedDate:  formatTime(entry.LastChangedDate),
				LastAccessedDate: formatTime(entry.LastAccessedDate),
				Tags:             fromTags(entry.Tags),
				DeletionDate:     formatTime(entry.DeletedDate),
			})
		}

		if out.NextToken == nil || len(summaries) >= maxResults {
			break
		}
		params.NextToken = out.NextToken
	}

	if len(summaries) > maxResults {
		summaries = summaries[:maxResults]
	}

	return &ListSecretsResult{
		Success: true,
		Secrets: summaries,
		Count:   len(summaries),
		Region:  s.region(in.CallOptions),
	}, nil
}

// DescribeSecretInput are the parameters for DescribeSecret.
type DescribeSecretInput struct {
	SecretID string
	CallOptions
}

// DescribeSecret returns a secret's metadata without its value.
func (s *Service) DescribeSecret(ctx context.Context, in DescribeSecretInput) (*DescribeSecretResult, error) {
	fail := func(code, msg string) *DescribeSecretResult {
		return &DescribeSecretResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	out, err := client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(in.SecretID),
	})
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("DescribeSecret", err)
	}

	result := &DescribeSecretResult{
		Success:            true,
		SecretName:         aws.ToString(out.Name),
		SecretARN:          aws.ToString(out.ARN),
		Description:        aws.ToString(out.Description),
		KMSKeyID:           aws.ToString(out.KmsKeyId),
		RotationEnabled:    aws.ToBool(out.RotationEnabled),
		RotationLambdaARN:  aws.ToString(out.RotationLambdaARN),
		LastRotatedDate:    formatTime(out.LastRotatedDate),
		LastChangedDate:    formatTime(out.LastChangedDate),
		LastAccessedDate:   formatTime(out.LastAccessedDate),
		DeletedDate:        formatTime(out.DeletedDate),
		Tags:               fromTags(out.Tags),
		VersionIDsToStages: out.VersionIdsToStages,
	}
	if rules := out.RotationRules; rules != nil {
		result.RotationRules = &RotationRules{
			AutomaticallyAfterDays: aws.ToInt64(rules.AutomaticallyAfterDays),
			Duration:               aws.ToString(rules.Duration),
			ScheduleExpression:     aws.ToString(rules.ScheduleExpression),
		}
	}
	return result, nil
}

// RestoreSecretInput are the parameters for RestoreSecret.
type RestoreSecretInput struct {
	SecretID string
	CallOptions
}

// RestoreSecret cancels a pending deletion within the recovery window.
func (s *Service) RestoreSecret(ctx context.Context, in RestoreSecretInput) (*RestoreSecretResult, error) {
	fail := func(code, msg string) *RestoreSecretResult {
		return &RestoreSecretResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	out, err := client.RestoreSecret(ctx, &secretsmanager.RestoreSecretInput{
		SecretId: aws.String(in.SecretID),
	})
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("RestoreSecret", err)
	}

	return &RestoreSecretResult{
		Success:    true,
		SecretName: aws.ToString(out.Name),
		SecretARN:  aws.ToString(out.ARN),
		Region:     s.region(in.CallOptions),
	}, nil
}

// TagSecretInput are the parameters for TagSecret.
type TagSecretInput struct {
	SecretID string
	Tags     map[string]string
	CallOptions
}

// TagSecret adds or updates tags on a secret.
func (s *Service) TagSecret(ctx context.Context, in TagSecretInput) (*TagSecretResult, error) {
	fail := func(code, msg string) *TagSecretResult {
		return &TagSecretResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	_, err = client.TagResource(ctx, &secretsmanager.TagResourceInput{
		SecretId: aws.String(in.SecretID),
		Tags:     toTags(in.Tags),
	})
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("TagResource", err)
	}

	return &TagSecretResult{
		Success:   true,
		SecretID:  in.SecretID,
		TagsAdded: in.Tags,
	}, nil
}

// UntagSecretInput are the parameters for UntagSecret.
type UntagSecretInput struct {
	SecretID string
	TagKeys  []string
	CallOptions
}

// UntagSecret removes tags from a secret.
func (s *Service) UntagSecret(ctx context.Context, in UntagSecretInput) (*UntagSecretResult, error) {
	fail := func(code, msg string) *UntagSecretResult {
		return &UntagSecretResult{Error: msg, ErrorCode: code, SecretID: in.SecretID}
	}

	client, err := s.client(ctx, in.CallOptions)
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, err
	}

	_, err = client.UntagResource(ctx, &secretsmanager.UntagResourceInput{
		SecretId: aws.String(in.SecretID),
		TagKeys:  in.TagKeys,
	})
	if err != nil {
		if code, msg, ok := apiFailure(err); ok {
			return fail(code, msg), nil
		}
		return nil, remoteErr("UntagResource", err)
	}

	return &UntagSecretResult{
		Success:     true,
		SecretID:    in.SecretID,
		TagsRemoved: in.TagKeys,
	}, nil
}

// toTags converts a tag map to the SDK's tag list, sorted by key for
// deterministic request bodies.
func toTags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return out
}

func fromTags(tags []types.Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return out
}
