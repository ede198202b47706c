package main

import (
	"os"
	"strings"
)

const defaultConfigPath = "orchestrator.yaml"

// resolveConfigPath prefers an explicit --config flag, then
// ORCHESTRATOR_CONFIG, then the default path in the working directory.
func resolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if v := strings.TrimSpace(os.Getenv("ORCHESTRATOR_CONFIG")); v != "" {
		return v
	}
	return defaultConfigPath
}
