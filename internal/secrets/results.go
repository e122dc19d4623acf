package secrets

import "time"

// Result shapes use snake_case JSON tags matching the tool payloads callers
// already consume. A failed remote call produces Success=false with the
// provider error code/message and the identifying input; it is never
// surfaced as a Go error.

// CreateSecretResult is the outcome of a create operation.
type CreateSecretResult struct {
	Success    bool   `json:"success"`
	SecretName string `json:"secret_name,omitempty"`
	SecretARN  string `json:"secret_arn,omitempty"`
	VersionID  string `json:"version_id,omitempty"`
	Region     string `json:"region,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
}

// GetSecretValueResult carries a secret value plus parse metadata. When the
// stored value is valid JSON, SecretValue holds the parsed form and IsJSON
// is true; otherwise SecretValue is the raw string.
type GetSecretValueResult struct {
	Success       bool        `json:"success"`
	SecretName    string      `json:"secret_name,omitempty"`
	SecretARN     string      `json:"secret_arn,omitempty"`
	SecretValue   interface{} `json:"secret_value,omitempty"`
	IsJSON        bool        `json:"is_json"`
	VersionID     string      `json:"version_id,omitempty"`
	VersionStages []string    `json:"version_stages,omitempty"`
	CreatedDate   string      `json:"created_date,omitempty"`
	Error         string      `json:"error,omitempty"`
	ErrorCode     string      `json:"error_code,omitempty"`
	SecretID      string      `json:"secret_id,omitempty"`
}

// UpdateSecretResult is the outcome of an update operation.
type UpdateSecretResult struct {
	Success    bool   `json:"success"`
	SecretName string `json:"secret_name,omitempty"`
	SecretARN  string `json:"secret_arn,omitempty"`
	VersionID  string `json:"version_id,omitempty"`
	Region     string `json:"region,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	SecretID   string `json:"secret_id,omitempty"`
}

// DeleteSecretResult is the outcome of a delete operation.
type DeleteSecretResult struct {
	Success      bool   `json:"success"`
	SecretName   string `json:"secret_name,omitempty"`
	SecretARN    string `json:"secret_arn,omitempty"`
	DeletionDate string `json:"deletion_date,omitempty"`
	ForceDeleted bool   `json:"force_deleted"`
	Error        string `json:"error,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	SecretID     string `json:"secret_id,omitempty"`
}

// SecretSummary is one entry in a list result.
type SecretSummary struct {
	Name             string            `json:"name"`
	ARN              string            `json:"arn"`
	Description      string            `json:"description,omitempty"`
	LastChangedDate  string            `json:"last_changed_date,omitempty"`
	LastAccessedDate string            `json:"last_accessed_date,omitempty"`
	Tags             map[string]string `json:"tags"`
	DeletionDate     string            `json:"deletion_date,omitempty"`
}

// ListSecretsResult is the outcome of a list operation.
type ListSecretsResult struct {
	Success   bool            `json:"success"`
	Secrets   []SecretSummary `json:"secrets,omitempty"`
	Count     int             `json:"count"`
	Region    string          `json:"region,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// RotationRules describes a secret's automatic rotation schedule.
type RotationRules struct {
	AutomaticallyAfterDays int64  `json:"automatically_after_days,omitempty"`
	Duration               string `json:"duration,omitempty"`
	ScheduleExpression     string `json:"schedule_expression,omitempty"`
}

// DescribeSecretResult is the full metadata of a secret, value excluded.
type DescribeSecretResult struct {
	Success            bool                `json:"success"`
	SecretName         string              `json:"secret_name,omitempty"`
	SecretARN          string              `json:"secret_arn,omitempty"`
	Description        string              `json:"description,omitempty"`
	KMSKeyID           string              `json:"kms_key_id,omitempty"`
	RotationEnabled    bool                `json:"rotation_enabled"`
	RotationLambdaARN  string              `json:"rotation_lambda_arn,omitempty"`
	RotationRules      *RotationRules      `json:"rotation_rules,omitempty"`
	LastRotatedDate    string              `json:"last_rotated_date,omitempty"`
	LastChangedDate    string              `json:"last_changed_date,omitempty"`
	LastAccessedDate   string              `json:"last_accessed_date,omitempty"`
	DeletedDate        string              `json:"deleted_date,omitempty"`
	Tags               map[string]string   `json:"tags"`
	VersionIDsToStages map[string][]string `json:"version_ids_to_stages,omitempty"`
	Error              string              `json:"error,omitempty"`
	ErrorCode          string              `json:"error_code,omitempty"`
	SecretID           string              `json:"secret_id,omitempty"`
}

// RestoreSecretResult is the outcome of a restore operation.
type RestoreSecretResult struct {
	Success    bool   `json:"success"`
	SecretName string `json:"secret_name,omitempty"`
	SecretARN  string `json:"secret_arn,omitempty"`
	Region     string `json:"region,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	SecretID   string `json:"secret_id,omitempty"`
}

// TagSecretResult acknowledges a tagging operation.
type TagSecretResult struct {
	Success   bool              `json:"success"`
	SecretID  string            `json:"secret_id,omitempty"`
	TagsAdded map[string]string `json:"tags_added,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
}

// UntagSecretResult acknowledges an untagging operation.
type UntagSecretResult struct {
	Success     bool     `json:"success"`
	SecretID    string   `json:"secret_id,omitempty"`
	TagsRemoved []string `json:"tags_removed,omitempty"`
	Error       string   `json:"error,omitempty"`
	ErrorCode   string   `json:"error_code,omitempty"`
}

// formatTime renders a timestamp as RFC 3339, or "" for nil.
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
