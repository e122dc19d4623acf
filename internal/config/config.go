// Package config loads awsops settings from environment variables.
// Account-to-role and account-to-profile mappings follow a naming
// convention: ACCOUNT_{NAME}_ROLE_ARN and ACCOUNT_{NAME}_PROFILE.
package config

import (
	"os"
	"sort"
	"strings"
)

const (
	// DefaultRegion is used when neither AWS_REGION nor AWS_DEFAULT_REGION is set.
	DefaultRegion = "us-east-1"

	accountPrefix = "ACCOUNT_"
	roleArnSuffix = "_ROLE_ARN"
	profileSuffix = "_PROFILE"
)

// Region returns the default AWS region. AWS_REGION wins over
// AWS_DEFAULT_REGION; both unset falls back to DefaultRegion.
func Region() string {
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		return region
	}
	return DefaultRegion
}

// AuthToken returns the bearer token required by the HTTP transport.
// An empty value disables the authentication check.
func AuthToken() string {
	return os.Getenv("MCP_AUTH_TOKEN")
}

// AccountRoleARN returns the pre-configured role ARN for a named account,
// or "" when the account is not configured.
func AccountRoleARN(accountName string) string {
	return os.Getenv(accountPrefix + envName(accountName) + roleArnSuffix)
}

// AccountProfile returns the pre-configured AWS profile for a named account,
// or "" when the account is not configured.
func AccountProfile(accountName string) string {
	return os.Getenv(accountPrefix + envName(accountName) + profileSuffix)
}

// ConfiguredAccounts returns all account-name → role-ARN mappings found in
// the environment.
func ConfiguredAccounts() map[string]string {
	return scanEnv(roleArnSuffix)
}

// ConfiguredProfiles returns all account-name → profile mappings found in
// the environment.
func ConfiguredProfiles() map[string]string {
	return scanEnv(profileSuffix)
}

// AccountNames returns the sorted union of account names that have either a
// role ARN or a profile configured.
func AccountNames() []string {
	seen := make(map[string]bool)
	for name := range ConfiguredAccounts() {
		seen[name] = true
	}
	for name := range ConfiguredProfiles() {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// envName converts an account name to its environment-variable form:
// uppercased, hyphens replaced with underscores.
func envName(accountName string) string {
	return strings.ReplaceAll(strings.ToUpper(accountName), "-", "_")
}

// accountName converts the middle segment of an ACCOUNT_* variable back to
// its account-name form: lowercased, underscores replaced with hyphens.
func accountName(envSegment string) string {
	return strings.ReplaceAll(strings.ToLower(envSegment), "_", "-")
}

func scanEnv(suffix string) map[string]string {
	result := make(map[string]string)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || value == "" {
			continue
		}
		if !strings.HasPrefix(key, accountPrefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		segment := key[len(accountPrefix) : len(key)-len(suffix)]
		if segment == "" {
			continue
		}
		result[accountName(segment)] = value
	}
	return result
}
