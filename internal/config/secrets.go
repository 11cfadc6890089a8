package config

import (
	"fmt"
	"os"
	"strings"
)

// readSecret reads a secret from the standard Docker Secrets path. When the
// file is absent it falls back to the environment variable named fallbackEnv,
// so local runs without a secrets mount still work.
func readSecret(secretName, fallbackEnv string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	if value := strings.TrimSpace(os.Getenv(fallbackEnv)); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found: no file %s and %s is not set", secretName, filePath, fallbackEnv)
}

// readOptionalSecret is readSecret for secrets that may legitimately be empty.
func readOptionalSecret(secretName, fallbackEnv string) string {
	value, err := readSecret(secretName, fallbackEnv)
	if err != nil {
		return ""
	}
	return value
}
