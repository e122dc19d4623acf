package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultJSON decodes the single text content block of a tool result.
func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func TestHandleListAccounts(t *testing.T) {
	t.Setenv("ACCOUNT_PROD_ROLE_ARN", "arn:aws:iam::111111111111:role/ops")
	t.Setenv("ACCOUNT_STAGING_US_ROLE_ARN", "arn:aws:iam::222222222222:role/ops")
	t.Setenv("ACCOUNT_DEV_PROFILE", "dev-profile")

	srv, _ := newTestServer(t, "")

	res, err := srv.handleListAccounts(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	payload := resultJSON(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(2), payload["accounts_count"])
	assert.Equal(t, float64(1), payload["profiles_count"])

	accounts, ok := payload["accounts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::111111111111:role/ops", accounts["prod"])
	assert.Contains(t, accounts, "staging-us", "underscores in env names map to hyphens")

	profiles, ok := payload["profiles"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dev-profile", profiles["dev"])
}

func TestHandleListAccountsRegionOverride(t *testing.T) {
	srv, _ := newTestServer(t, "")

	res, err := srv.handleListAccounts(context.Background(), toolRequest(map[string]any{
		"region": "eu-central-1",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, res)
	assert.Equal(t, "eu-central-1", payload["default_region"])
}

func TestHandleCreateSecret(t *testing.T) {
	srv, client := newTestServer(t, "")

	res, err := srv.handleCreateSecret(context.Background(), toolRequest(map[string]any{
		"name":         "app/db",
		"secret_value": "hunter2",
		"description":  "db creds",
		"tags": map[string]any{
			"env": "prod",
		},
	}))
	require.NoError(t, err)

	payload := resultJSON(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "app/db", payload["secret_name"])

	require.NotNil(t, client.lastCreate)
	assert.Equal(t, "db creds", aws.ToString(client.lastCreate.Description))
	require.Len(t, client.lastCreate.Tags, 1)
	assert.Equal(t, "env", aws.ToString(client.lastCreate.Tags[0].Key))
}

func TestHandleCreateSecretMissingRequired(t *testing.T) {
	srv, _ := newTestServer(t, "")

	res, err := srv.handleCreateSecret(context.Background(), toolRequest(map[string]any{
		"name": "app/db",
	}))
	require.NoError(t, err, "argument errors are tool-result errors, not Go errors")
	assert.True(t, res.IsError)
}

func TestHandleGetSecretValue(t *testing.T) {
	srv, _ := newTestServer(t, "")

	res, err := srv.handleGetSecretValue(context.Background(), toolRequest(map[string]any{
		"secret_id": "app/db",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, true, payload["is_json"])

	value, ok := payload["secret_value"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "admin", value["user"])
}

func TestHandleDeleteSecretDefaults(t *testing.T) {
	srv, client := newTestServer(t, "")

	res, err := srv.handleDeleteSecret(context.Background(), toolRequest(map[string]any{
		"secret_id": "app/db",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, false, payload["force_deleted"])

	require.NotNil(t, client.lastDelete)
	assert.Equal(t, int64(30), aws.ToInt64(client.lastDelete.RecoveryWindowInDays))
}

func TestHandleUntagSecret(t *testing.T) {
	srv, _ := newTestServer(t, "")

	res, err := srv.handleUntagSecret(context.Background(), toolRequest(map[string]any{
		"secret_id": "app/db",
		"tag_keys":  []any{"env", "team"},
	}))
	require.NoError(t, err)

	payload := resultJSON(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, []interface{}{"env", "team"}, payload["tags_removed"])
}

func TestHandleUntagSecretRejectsEmptyKeys(t *testing.T) {
	srv, _ := newTestServer(t, "")

	res, err := srv.handleUntagSecret(context.Background(), toolRequest(map[string]any{
		"secret_id": "app/db",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleTagSecretRejectsEmptyTags(t *testing.T) {
	srv, _ := newTestServer(t, "")

	res, err := srv.handleTagSecret(context.Background(), toolRequest(map[string]any{
		"secret_id": "app/db",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestStringMap(t *testing.T) {
	req := toolRequest(map[string]any{
		"tags": map[string]any{
			"env":   "prod",
			"count": 3, // non-string values are dropped
		},
	})

	assert.Equal(t, map[string]string{"env": "prod"}, stringMap(req, "tags"))
	assert.Nil(t, stringMap(req, "missing"))
}

func TestStringSlice(t *testing.T) {
	req := toolRequest(map[string]any{
		"keys": []any{"a", 1, "b"},
	})

	assert.Equal(t, []string{"a", "b"}, stringSlice(req, "keys"))
	assert.Nil(t, stringSlice(req, "missing"))
}
