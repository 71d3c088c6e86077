package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "templates", config.Templates.Dir)
	assert.Equal(t, "pip", config.Backend.Default)
	assert.Equal(t, 5*time.Minute, config.Backend.InstallTimeout)
	assert.Equal(t, 4, config.Inspector.Workers)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NotEmpty(t, config.Templates.ExcludePatterns)
}

func TestLoad_ViperOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("backend.default", "uv")
	viper.Set("inspector.workers", 8)
	viper.Set("output.base_dir", "/srv/projects")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "uv", config.Backend.Default)
	assert.Equal(t, 8, config.Inspector.Workers)
	assert.Equal(t, "/srv/projects", config.Output.BaseDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults_valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "bad_log_level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "bad_log_format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "too_many_workers",
			mutate:  func(c *Config) { c.Inspector.Workers = 128 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeConfigInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, Default().Backend.InstallTimeout, config.Backend.InstallTimeout)
	assert.Equal(t, Default().Inspector.TestTimeout, config.Inspector.TestTimeout)
}
