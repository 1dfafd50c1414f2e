// Package config loads the livesyncctl front end's configuration from
// environment variables, adapted from the teacher's envOr/envBool/envInt
// helpers.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the flags livesyncctl needs to drive a Coordinator.
type Config struct {
	ProjectRoot   string
	PlatformsRoot string
	Platform      string // "ios" or "android"
	AppBasename   string

	Bundle       bool
	Release      bool
	LiveEdit     bool
	SyncAllFiles bool

	LogLevel string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ProjectRoot:   envOr("LIVESYNC_PROJECT_ROOT", "."),
		PlatformsRoot: envOr("LIVESYNC_PLATFORMS_ROOT", "platforms"),
		Platform:      envOr("LIVESYNC_PLATFORM", "android"),
		AppBasename:   envOr("LIVESYNC_APP_BASENAME", "app"),
		Bundle:        envBool("LIVESYNC_BUNDLE", true),
		Release:       envBool("LIVESYNC_RELEASE", false),
		LiveEdit:      envBool("LIVESYNC_LIVE_EDIT", true),
		SyncAllFiles:  envBool("LIVESYNC_SYNC_ALL_FILES", false),
		LogLevel:      envOr("LIVESYNC_LOG_LEVEL", "info"),
	}

	if cfg.Platform != "ios" && cfg.Platform != "android" {
		return nil, fmt.Errorf("LIVESYNC_PLATFORM must be \"ios\" or \"android\", got %q", cfg.Platform)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
