package contracts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/stackscope/internal/apperr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_YAMLList(t *testing.T) {
	p := writeFile(t, "api.yaml", `
- path: " /v1/foo "
  method: get
  service: accounts
  errors: [E404, E400]
- path: /v1/bar
  method: POST
  owner: payments
- method: PUT
`)
	got, err := Load(p)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/v1/foo", got[0].Path)
	assert.Equal(t, "GET", got[0].Method)
	assert.Equal(t, "accounts", got[0].Service)
	assert.Equal(t, []string{"E400", "E404"}, got[0].Errors)
	assert.Equal(t, p, got[0].Source)

	assert.Equal(t, "payments", got[1].Extra["owner"])
}

func TestLoad_YAMLWrapped(t *testing.T) {
	p := writeFile(t, "api.yml", `
contracts:
  - path: /v1/foo
    method: GET
`)
	got, err := Load(p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/v1/foo", got[0].Path)
}

func TestLoad_JSON(t *testing.T) {
	p := writeFile(t, "api.json", `{"contracts": [{"path": "/v1/baz", "method": "put", "errors": "E1, E2"}]}`)
	got, err := Load(p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PUT", got[0].Method)
	assert.Equal(t, []string{"E1", "E2"}, got[0].Errors)
}

func TestLoad_CSV(t *testing.T) {
	p := writeFile(t, "api.csv", "Path,Method,Version,Notes\n/v1/foo,get,v1,first\n,POST,v1,dropped\n/v1/qux,delete\n")
	got, err := Load(p)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "GET", got[0].Method)
	assert.Equal(t, "v1", got[0].Version)
	assert.Equal(t, "first", got[0].Extra["notes"])
	assert.Equal(t, "/v1/qux", got[1].Path)
	assert.Equal(t, "DELETE", got[1].Method)
}

func TestLoad_CSVMissingColumns(t *testing.T) {
	p := writeFile(t, "api.csv", "endpoint,verb\n/v1/foo,GET\n")
	_, err := Load(p)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeFile(t, "api.yaml", "")
	got, err := Load(p)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	p := writeFile(t, "api.xlsx", "binary")
	_, err := Load(p)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
