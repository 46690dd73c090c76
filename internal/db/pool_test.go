package db

import (
	"fmt"
	"testing"

	"gorm.io/gorm/logger"
)

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level       string
		environment string
		want        logger.LogLevel
	}{
		{level: "debug", environment: "production", want: logger.Info},
		{level: "TRACE", environment: "local", want: logger.Info},
		{level: "", environment: "production", want: logger.Warn},
		{level: "warning", environment: "production", want: logger.Warn},
		{level: "error", environment: "local", want: logger.Error},
		{level: "silent", environment: "local", want: logger.Silent},
		{level: "loud", environment: "local", want: logger.Warn},
		{level: "loud", environment: "production", want: logger.Error},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.level, tc.environment), func(t *testing.T) {
			t.Parallel()
			if got := resolveGormLogLevel(tc.level, tc.environment); got != tc.want {
				t.Fatalf("resolveGormLogLevel(%q, %q) = %v, want %v", tc.level, tc.environment, got, tc.want)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	t.Parallel()

	if !IsNoRows(fmt.Errorf("lookup: %w", ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not recognised")
	}
	if IsNoRows(fmt.Errorf("boom")) {
		t.Fatal("unrelated error treated as no rows")
	}
}
