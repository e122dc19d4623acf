package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/awsops/internal/awsauth"
	"github.com/systmms/awsops/internal/logging"
	"github.com/systmms/awsops/internal/secrets"
)

// stubSecretsClient answers every operation with a fixed happy-path shape;
// handler tests only need the facade to be reachable end to end.
type stubSecretsClient struct {
	lastCreate *secretsmanager.CreateSecretInput
	lastDelete *secretsmanager.DeleteSecretInput
}

func (c *stubSecretsClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	c.lastCreate = params
	return &secretsmanager.CreateSecretOutput{
		Name:      params.Name,
		ARN:       aws.String("arn:aws:secretsmanager:us-east-1:123456789012:secret:test"),
		VersionId: aws.String("v1"),
	}, nil
}

func (c *stubSecretsClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return &secretsmanager.GetSecretValueOutput{
		Name:         params.SecretId,
		SecretString: aws.String(`{"user":"admin"}`),
		VersionId:    aws.String("v1"),
	}, nil
}

func (c *stubSecretsClient) UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	return &secretsmanager.UpdateSecretOutput{Name: params.SecretId, VersionId: aws.String("v2")}, nil
}

func (c *stubSecretsClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	c.lastDelete = params
	return &secretsmanager.DeleteSecretOutput{Name: params.SecretId}, nil
}

func (c *stubSecretsClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	return &secretsmanager.ListSecretsOutput{}, nil
}

func (c *stubSecretsClient) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	return &secretsmanager.DescribeSecretOutput{Name: params.SecretId}, nil
}

func (c *stubSecretsClient) RestoreSecret(ctx context.Context, params *secretsmanager.RestoreSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.RestoreSecretOutput, error) {
	return &secretsmanager.RestoreSecretOutput{Name: params.SecretId}, nil
}

func (c *stubSecretsClient) TagResource(ctx context.Context, params *secretsmanager.TagResourceInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.TagResourceOutput, error) {
	return &secretsmanager.TagResourceOutput{}, nil
}

func (c *stubSecretsClient) UntagResource(ctx context.Context, params *secretsmanager.UntagResourceInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UntagResourceOutput, error) {
	return &secretsmanager.UntagResourceOutput{}, nil
}

type noopSTS struct{}

func (noopSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	panic("no role path in these tests")
}

func newTestServer(t *testing.T, token string) (*Server, *stubSecretsClient) {
	t.Helper()
	logger := logging.NewWithWriter(io.Discard, false, true)
	client := &stubSecretsClient{}
	cache := awsauth.NewClientCache(
		awsauth.NewResolver(noopSTS{}, logger),
		awsauth.NewSessionRegistry(),
		func(service string, cfg aws.Config) (interface{}, error) { return client, nil },
		"us-east-1",
		logger,
	)
	svc := secrets.NewService(cache, logger, "us-east-1")
	return New(svc, logger, Options{Version: "test", AuthToken: token}), client
}

func TestHealthzUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenAPIUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Equal(t, "3.0.0", schema["openapi"])

	info, ok := schema["info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "AWS Operations MCP Server", info["title"])
}

func TestOpenAPIPreflight(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/openapi.json", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthMissingHeader(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Missing Authorization header", body["detail"])
}

func TestAuthMalformedHeader(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "Bearer")
}

func TestAuthWrongToken(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer wrong")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthCorrectTokenPasses(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer sekrit")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// The MCP transport may reject the empty body, but auth must not.
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
	assert.NotEqual(t, http.StatusForbidden, rec.Code)
}

func TestAuthDisabledWhenNoTokenConfigured(t *testing.T) {
	srv, _ := newTestServer(t, "")
	handler := srv.Handler()

	// Any presented token passes, but a bearer header is still required.
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer anything-at-all")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
	assert.NotEqual(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPreflightBypassesAuth(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/mcp", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
