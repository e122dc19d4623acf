package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/systmms/awsops/internal/config"
	"github.com/systmms/awsops/internal/secrets"
)

// Shared authentication parameters accepted by every secret tool.
func withCallOptions(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("role_arn",
			mcp.Description("IAM role ARN to assume for cross-account access"),
		),
		mcp.WithString("region",
			mcp.Description("AWS region (defaults to the configured region)"),
		),
		mcp.WithString("profile",
			mcp.Description("AWS profile name from ~/.aws/credentials, for local development"),
		),
	)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_accounts",
		mcp.WithDescription("List pre-configured AWS accounts with their role ARNs and profiles"),
		mcp.WithString("region",
			mcp.Description("AWS region to report as the default"),
		),
	), s.handleListAccounts)

	s.mcp.AddTool(mcp.NewTool("create_secret",
		withCallOptions(
			mcp.WithDescription("Create a new secret in AWS Secrets Manager"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name of the secret, e.g. 'prod/myapp/database'"),
			),
			mcp.WithString("secret_value",
				mcp.Required(),
				mcp.Description("The secret value (plain string or JSON string)"),
			),
			mcp.WithString("description",
				mcp.Description("Description for the secret"),
			),
			mcp.WithObject("tags",
				mcp.Description("Tags as key-value pairs"),
			),
		)...,
	), s.handleCreateSecret)

	s.mcp.AddTool(mcp.NewTool("get_secret_value",
		withCallOptions(
			mcp.WithDescription("Retrieve the value of a secret from AWS Secrets Manager"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
			mcp.WithString("version_id",
				mcp.Description("Specific version ID"),
			),
			mcp.WithString("version_stage",
				mcp.Description("Version stage (AWSCURRENT, AWSPREVIOUS)"),
			),
		)...,
	), s.handleGetSecretValue)

	s.mcp.AddTool(mcp.NewTool("update_secret",
		withCallOptions(
			mcp.WithDescription("Update an existing secret's value in AWS Secrets Manager"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
			mcp.WithString("secret_value",
				mcp.Required(),
				mcp.Description("New secret value (plain string or JSON string)"),
			),
			mcp.WithString("description",
				mcp.Description("New description"),
			),
		)...,
	), s.handleUpdateSecret)

	s.mcp.AddTool(mcp.NewTool("delete_secret",
		withCallOptions(
			mcp.WithDescription("Delete a secret from AWS Secrets Manager"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
			mcp.WithNumber("recovery_window_in_days",
				mcp.DefaultNumber(30),
				mcp.Description("Days before permanent deletion (7-30)"),
			),
			mcp.WithBoolean("force_delete_without_recovery",
				mcp.DefaultBool(false),
				mcp.Description("Delete immediately without a recovery window"),
			),
		)...,
	), s.handleDeleteSecret)

	s.mcp.AddTool(mcp.NewTool("list_secrets",
		withCallOptions(
			mcp.WithDescription("List secrets in AWS Secrets Manager"),
			mcp.WithString("name_prefix",
				mcp.Description("Filter secrets by name prefix"),
			),
			mcp.WithNumber("max_results",
				mcp.DefaultNumber(500),
				mcp.Description("Maximum number of results"),
			),
			mcp.WithBoolean("include_planned_deletion",
				mcp.DefaultBool(false),
				mcp.Description("Include secrets scheduled for deletion"),
			),
		)...,
	), s.handleListSecrets)

	s.mcp.AddTool(mcp.NewTool("describe_secret",
		withCallOptions(
			mcp.WithDescription("Get metadata about a secret without retrieving its value"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
		)...,
	), s.handleDescribeSecret)

	s.mcp.AddTool(mcp.NewTool("restore_secret",
		withCallOptions(
			mcp.WithDescription("Restore a previously deleted secret within its recovery window"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
		)...,
	), s.handleRestoreSecret)

	s.mcp.AddTool(mcp.NewTool("tag_secret",
		withCallOptions(
			mcp.WithDescription("Add or update tags on a secret"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
			mcp.WithObject("tags",
				mcp.Required(),
				mcp.Description("Tags as key-value pairs, e.g. {\"Environment\": \"prod\"}"),
			),
		)...,
	), s.handleTagSecret)

	s.mcp.AddTool(mcp.NewTool("untag_secret",
		withCallOptions(
			mcp.WithDescription("Remove tags from a secret"),
			mcp.WithString("secret_id",
				mcp.Required(),
				mcp.Description("Secret name or ARN"),
			),
			mcp.WithArray("tag_keys",
				mcp.Required(),
				mcp.Description("Tag keys to remove"),
			),
		)...,
	), s.handleUntagSecret)
}

// jsonResult renders any result value as a text content block.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func callOptions(req mcp.CallToolRequest) secrets.CallOptions {
	return secrets.CallOptions{
		RoleArn: req.GetString("role_arn", ""),
		Region:  req.GetString("region", ""),
		Profile: req.GetString("profile", ""),
	}
}

// stringMap extracts a map-valued argument with string values.
func stringMap(req mcp.CallToolRequest, key string) map[string]string {
	raw, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// stringSlice extracts an array-valued argument with string elements.
func stringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// listAccountsResult enumerates the statically configured account mappings.
type listAccountsResult struct {
	Success       bool              `json:"success"`
	Accounts      map[string]string `json:"accounts"`
	Profiles      map[string]string `json:"profiles"`
	AccountsCount int               `json:"accounts_count"`
	ProfilesCount int               `json:"profiles_count"`
	DefaultRegion string            `json:"default_region"`
}

func (s *Server) handleListAccounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accounts := config.ConfiguredAccounts()
	profiles := config.ConfiguredProfiles()

	region := req.GetString("region", "")
	if region == "" {
		region = config.Region()
	}

	return jsonResult(listAccountsResult{
		Success:       true,
		Accounts:      accounts,
		Profiles:      profiles,
		AccountsCount: len(accounts),
		ProfilesCount: len(profiles),
		DefaultRegion: region,
	})
}

func (s *Server) handleCreateSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("secret_value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.secrets.CreateSecret(ctx, secrets.CreateSecretInput{
		Name:        name,
		SecretValue: value,
		Description: req.GetString("description", ""),
		Tags:        stringMap(req, "tags"),
		CallOptions: callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGetSecretValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.secrets.GetSecretValue(ctx, secrets.GetSecretValueInput{
		SecretID:     secretID,
		VersionID:    req.GetString("version_id", ""),
		VersionStage: req.GetString("version_stage", ""),
		CallOptions:  callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleUpdateSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("secret_value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.secrets.UpdateSecret(ctx, secrets.UpdateSecretInput{
		SecretID:    secretID,
		SecretValue: value,
		Description: req.GetString("description", ""),
		CallOptions: callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDeleteSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.secrets.DeleteSecret(ctx, secrets.DeleteSecretInput{
		SecretID:                   secretID,
		RecoveryWindowInDays:       int64(req.GetInt("recovery_window_in_days", 30)),
		ForceDeleteWithoutRecovery: req.GetBool("force_delete_without_recovery", false),
		CallOptions:                callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleListSecrets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.secrets.ListSecrets(ctx, secrets.ListSecretsInput{
		NamePrefix:             req.GetString("name_prefix", ""),
		MaxResults:             req.GetInt("max_results", 500),
		IncludePlannedDeletion: req.GetBool("include_planned_deletion", false),
		CallOptions:            callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDescribeSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.secrets.DescribeSecret(ctx, secrets.DescribeSecretInput{
		SecretID:    secretID,
		CallOptions: callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRestoreSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.secrets.RestoreSecret(ctx, secrets.RestoreSecretInput{
		SecretID:    secretID,
		CallOptions: callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleTagSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := stringMap(req, "tags")
	if len(tags) == 0 {
		return mcp.NewToolResultError("tags must be a non-empty object of string pairs"), nil
	}

	result, err := s.secrets.TagSecret(ctx, secrets.TagSecretInput{
		SecretID:    secretID,
		Tags:        tags,
		CallOptions: callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleUntagSecret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := req.RequireString("secret_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keys := stringSlice(req, "tag_keys")
	if len(keys) == 0 {
		return mcp.NewToolResultError("tag_keys must be a non-empty array of strings"), nil
	}

	result, err := s.secrets.UntagSecret(ctx, secrets.UntagSecretInput{
		SecretID:    secretID,
		TagKeys:     keys,
		CallOptions: callOptions(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}
