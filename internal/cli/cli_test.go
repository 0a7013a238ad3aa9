package cli

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kanopy-platform/appid-gateway/pkg/mocks"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, tenant *mocks.AppIDServer, args ...string) (string, error) {
	t.Helper()
	defer viper.Reset()

	secretPath := filepath.Join(t.TempDir(), "client-secret")
	require.NoError(t, os.WriteFile(secretPath, []byte(mocks.TestClientSecret+"\n"), 0600))

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args,
		"--base-auth-uri", tenant.BaseAuthURI()+"/",
		"--tenant-id", mocks.TestTenantID,
		"--client-id", mocks.TestClientID,
		"--client-secret-filepath", secretPath,
		"--redirect-uri", "https://app.example.com/callback",
	))

	err := cmd.Execute()
	return out.String(), err
}

// viper is global, so these tests do not run in parallel.

func TestAuthorizeURLCommand(t *testing.T) {
	tenant, err := mocks.NewAppIDServer()
	require.NoError(t, err)
	defer tenant.Close()

	out, err := runCommand(t, tenant, "authorize-url", "--state", "mock_state", "--idp-override", "google")
	require.NoError(t, err)

	line := strings.TrimPrefix(strings.Split(out, "\n")[0], "url: ")
	u, err := url.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/v4/"+mocks.TestTenantID+"/authorization", u.Path)
	assert.Equal(t, "google", u.Query().Get("idp"))
	assert.Equal(t, "mock_state", u.Query().Get("state"))

	out, err = runCommand(t, tenant, "authorize-url")
	require.NoError(t, err)
	assert.Contains(t, out, "idp=saml")
	assert.Regexp(t, `state: [0-9A-Za-z]{32}`, out)

	_, err = runCommand(t, tenant, "authorize-url", "--idp", "not_allowed")
	assert.EqualError(t, err, `IDP "not_allowed" is not supported.`)
}

func TestTokenCommands(t *testing.T) {
	tenant, err := mocks.NewAppIDServer()
	require.NoError(t, err)
	defer tenant.Close()

	out, err := runCommand(t, tenant, "introspect", "mock_access_token")
	require.NoError(t, err)
	assert.Equal(t, "active: true\n", out)

	req, _ := tenant.LastRequest("introspect")
	assert.Equal(t, mocks.TestClientSecret, req.Password)

	out, err = runCommand(t, tenant, "revoke", "mock_refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "revoked: true\n", out)

	out, err = runCommand(t, tenant, "userinfo", "mock_access_token")
	require.NoError(t, err)
	assert.Contains(t, out, `"lotusNotesId": "Kilgore Trout/Org1/Org2/ACME"`)
	assert.Contains(t, out, `"email": "kilgore@kilgore.trout"`)
}

func TestMissingRequiredFields(t *testing.T) {
	defer viper.Reset()

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"introspect", "token"})

	err := cmd.Execute()
	assert.EqualError(t, err, "Required fields (base_auth_uri or tenant_id) are missing.")
}

func TestReadSecret(t *testing.T) {
	secret, err := readSecret("")
	assert.NoError(t, err)
	assert.Empty(t, secret)

	_, err = readSecret("testdata/pathnotfound")
	assert.Error(t, err)
}
