package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumeRoleErrorMessage(t *testing.T) {
	err := &AssumeRoleError{
		RoleArn: "arn:aws:iam::123456789012:role/ops",
		Code:    "AccessDenied",
		Message: "not authorized to perform sts:AssumeRole",
	}

	msg := err.Error()
	assert.Contains(t, msg, "arn:aws:iam::123456789012:role/ops")
	assert.Contains(t, msg, "AccessDenied")
	assert.Contains(t, msg, "trust policy")
}

func TestAssumeRoleErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := &AssumeRoleError{RoleArn: "arn:aws:iam::1:role/x", Err: cause}

	assert.ErrorIs(t, err, cause)

	var target *AssumeRoleError
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, "arn:aws:iam::1:role/x", target.RoleArn)
}

func TestRemoteCallError(t *testing.T) {
	err := &RemoteCallError{
		Operation: "GetSecretValue",
		Code:      "ResourceNotFoundException",
		Message:   "Secrets Manager can't find the specified secret",
	}

	assert.Contains(t, err.Error(), "GetSecretValue failed")
	assert.Contains(t, err.Error(), "ResourceNotFoundException")
}

func TestAssumeRoleSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		contains string
	}{
		{name: "access denied", code: "AccessDenied", contains: "trust policy"},
		{name: "bad arn", code: "ValidationError", contains: "ARN format"},
		{name: "expired caller", code: "ExpiredToken", contains: "expired"},
		{name: "throttled", code: "ThrottlingException", contains: "rate limit"},
		{name: "unknown", code: "SomethingElse", contains: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AssumeRoleSuggestion(&AssumeRoleError{Code: tt.code})
			if tt.contains == "" {
				assert.Empty(t, s)
			} else {
				assert.Contains(t, s, tt.contains)
			}
		})
	}
}

func TestAuthenticationError(t *testing.T) {
	err := &AuthenticationError{Reason: "invalid authentication token"}
	assert.Equal(t, "authentication failed: invalid authentication token", err.Error())
}
