package logging

import (
	"testing"

	"github.com/unalkalkan/pdf2epub/pkg/types"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LogConfig
		enabled zapcore.Level
		wantErr bool
	}{
		{"default level", types.LogConfig{}, zapcore.InfoLevel, false},
		{"debug development", types.LogConfig{Level: "debug", Development: true}, zapcore.DebugLevel, false},
		{"warn", types.LogConfig{Level: "warn"}, zapcore.WarnLevel, false},
		{"invalid level", types.LogConfig{Level: "loud"}, zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("Expected level %s enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && logger.Core().Enabled(tt.enabled-1) {
				t.Errorf("Expected level %s disabled", tt.enabled-1)
			}
		})
	}
}
