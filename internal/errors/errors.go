// Package errors defines the error taxonomy shared across awsops:
// role-assumption failures, remote API rejections, and boundary
// authentication failures.
package errors

import (
	"fmt"
	"strings"
)

// AssumeRoleError indicates that STS rejected an AssumeRole request.
type AssumeRoleError struct {
	RoleArn string
	Code    string
	Message string
	Err     error
}

func (e *AssumeRoleError) Error() string {
	msg := fmt.Sprintf("failed to assume role %s", e.RoleArn)
	if e.Code != "" {
		msg += fmt.Sprintf(" (%s)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if suggestion := AssumeRoleSuggestion(e); suggestion != "" {
		msg += "\n  💡 Try: " + suggestion
	}
	return msg
}

func (e *AssumeRoleError) Unwrap() error {
	return e.Err
}

// RemoteCallError indicates a non-assume-role AWS API rejection. It carries
// the provider-defined error code and message for result translation.
type RemoteCallError struct {
	Operation string
	Code      string
	Message   string
	Err       error
}

func (e *RemoteCallError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Operation)
	if e.Code != "" {
		msg += fmt.Sprintf(" (%s)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// AuthenticationError indicates a missing, malformed, or mismatched bearer
// token at the transport boundary.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// AssumeRoleSuggestion returns a remediation hint for common STS failures.
func AssumeRoleSuggestion(e *AssumeRoleError) string {
	text := e.Code + " " + e.Message
	if e.Err != nil {
		text += " " + e.Err.Error()
	}

	switch {
	case strings.Contains(text, "AccessDenied"):
		return "Check that the role's trust policy allows your principal to assume it"
	case strings.Contains(text, "InvalidParameterValue"), strings.Contains(text, "ValidationError"):
		return "Check the role ARN format (arn:aws:iam::<account>:role/<name>)"
	case strings.Contains(text, "ExpiredToken"):
		return "The caller's own credentials have expired. Refresh them and retry"
	case strings.Contains(text, "Throttling"), strings.Contains(text, "TooManyRequests"):
		return "STS rate limit exceeded. Wait a moment and try again"
	case strings.Contains(text, "RegionDisabled"):
		return "The specified region is disabled for your account"
	default:
		return ""
	}
}
