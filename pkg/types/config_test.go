package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "memory backend needs nothing else",
			config:  Config{Backend: BackendMemory},
			wantErr: nil,
		},
		{
			name:    "redis without address",
			config:  Config{Backend: BackendRedis},
			wantErr: ErrRedisAddrEmpty,
		},
		{
			name:    "redis with address",
			config:  Config{Backend: BackendRedis, Redis: RedisConfig{Addr: "localhost:6379"}},
			wantErr: nil,
		},
		{
			name:    "unknown log level",
			config:  Config{Backend: BackendMemory, LogLevel: "chatty"},
			wantErr: ErrLogLevelUnknown,
		},
		{
			name:    "model without a name",
			config:  Config{Backend: BackendMemory, Models: []ModelSpec{{Key: "name"}}},
			wantErr: ErrModelNameEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
