package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:8081", "-g", "127.0.0.1:9090", "-d", "db", "-s", "secret",
			"-t", "15", "-r", "60", "-o", "2m", "-x=true", "-l", "debug",
		},
			expected: &Config{
				HTTPAddr:        "127.0.0.1:8081",
				GRPCAddr:        "127.0.0.1:9090",
				DatabaseDSN:     "db",
				SecretKey:       "secret",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 60 * time.Minute,
				OTPTTL:          2 * time.Minute,
				ExposeCodes:     true,
				LogLevel:        "debug",
			}},
		{name: "foreign flags ignored", args: []string{"cmd", "-c", "cfg.json", "-v", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "bad duration", args: []string{"cmd", "-o", "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}
			err := parseFlags(config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
