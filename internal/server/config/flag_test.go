package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected *Config
		name     string
		args     []string
	}{
		{
			name: "all flags set",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db",
				"-t", "60", "-w", "5",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			},
			expected: &Config{
				EndpointAddrHTTP: "127.0.0.1:9090",
				DatabaseDSN:      "db",
				SessionTTL:       60 * time.Minute,
				SweepInterval:    5 * time.Minute,
				S3RootUser:       "user",
				S3RootPassword:   "password",
				S3Bucket:         "bucket",
				S3Region:         "us-west-1",
				S3BaseEndpoint:   "http://endpoint",
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"cmd", "-a", ":7070", "-zzz", "whatever"},
			expected: &Config{
				EndpointAddrHTTP: ":7070",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}
			parseFlags(config)

			if diff := cmp.Diff(tt.expected, config); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFlags_KeepsExistingValues(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd"}

	config := &Config{EndpointAddrHTTP: ":6060", DatabaseDSN: "keep", SessionTTL: 30 * time.Minute}
	parseFlags(config)

	assert.Equal(t, ":6060", config.EndpointAddrHTTP)
	assert.Equal(t, "keep", config.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, config.SessionTTL)
}
