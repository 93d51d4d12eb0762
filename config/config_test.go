package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "letterboxd_import.csv", cfg.Output)
	assert.Equal(t, 100, cfg.MaxPages)
}

func TestLoad_ValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `user: "ahbei"
cookie: 'bid=abc; dbcl2="1:x"'
max_pages: 5
chrome: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ahbei", cfg.User)
	assert.Equal(t, `bid=abc; dbcl2="1:x"`, cfg.Cookie)
	assert.Equal(t, 5, cfg.MaxPages)
	assert.True(t, cfg.Chrome)
	assert.Equal(t, "letterboxd_import.csv", cfg.Output, "unset keys keep defaults")
	assert.Equal(t, "https://movie.douban.com", cfg.BaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_pages: [1, 2]\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	cfg := Default()
	cfg.User = "from-file"
	cfg.MaxPages = 5

	user := "from-flag"
	bom := true
	got := cfg.Merge(Overrides{User: &user, BOM: &bom})

	assert.Equal(t, "from-flag", got.User)
	assert.Equal(t, 5, got.MaxPages)
	assert.True(t, got.BOM)
	assert.Equal(t, "from-file", cfg.User, "Merge does not modify the receiver")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"missing user", Config{Cookie: "a=b", MaxPages: 1}, ErrMissingUser},
		{"missing cookie", Config{User: "u", Cookie: "  ", MaxPages: 1}, ErrMissingCookie},
		{"ok", Config{User: " u ", Cookie: "a=b", MaxPages: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "u", cfg.User)
				assert.Equal(t, "letterboxd_import.csv", cfg.Output)
				assert.Equal(t, "https://movie.douban.com", cfg.BaseURL)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := Config{User: "u", Cookie: "a=b", MaxPages: 0}
	assert.Error(t, cfg.Validate())
}
