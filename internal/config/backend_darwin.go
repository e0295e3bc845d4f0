//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.finplan.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "finplan")
	}
	return "finplan-data"
}

// darwinBackend stores config in UserDefaults via the defaults CLI.
type darwinBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &darwinBackend{domain: defaultsDomain}
}

// GetString returns defaults' textual rendering; booleans come back as 1/0,
// which strconv.ParseBool accepts.
func (b *darwinBackend) GetString(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default for key '%s': %w, output: %s", key, err, s)
	}
	return s, true, nil
}

func (b *darwinBackend) Set(key string, val any) error {
	var typ, text string
	switch v := val.(type) {
	case int:
		typ, text = "-int", strconv.Itoa(v)
	case bool:
		typ, text = "-bool", strconv.FormatBool(v)
	case float64:
		typ, text = "-float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		typ, text = "-string", fmt.Sprint(v)
	}
	return exec.Command("defaults", "write", b.domain, key, typ, text).Run()
}

func (b *darwinBackend) Delete(key string) error {
	return exec.Command("defaults", "delete", b.domain, key).Run()
}
