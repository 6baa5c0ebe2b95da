// Package secrets loads credentials from a HashiCorp Vault KV engine into the
// process environment ahead of config.Load.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/zatekoja/providersync/pkg/retry"
)

// DefaultKeys are the variables read from Vault when VaultConfig.Keys is empty.
var DefaultKeys = []string{
	"ACUITY_USER_ID",
	"ACUITY_API_KEY",
	"DB_PASSWORD",
	"REDIS_PASSWORD",
}

type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces variables that are already set
	Overwrite bool
	// Keys limits which secrets are exported
	Keys []string
}

type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  []string
	Skipped []string
}

// LoadVaultConfigFromEnv reads VAULT_* variables.
func LoadVaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Keys:      DefaultKeys,
	}
	if mount := os.Getenv("VAULT_MOUNT"); mount != "" {
		cfg.Mount = mount
	}
	if val := os.Getenv("VAULT_KV_VERSION"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.KVVersion = parsed
		}
	}
	if val := os.Getenv("VAULT_TIMEOUT_MS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Timeout = time.Duration(parsed) * time.Millisecond
		}
	}
	if val := os.Getenv("VAULT_KEYS"); val != "" {
		cfg.Keys = strings.Split(val, ",")
	}
	return cfg
}

// ApplyVaultSecrets fetches cfg.Path and exports the selected keys as
// environment variables. Server errors are retried; 4xx responses are not.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	result := VaultResult{Enabled: cfg.Enabled, Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	url, err := buildVaultURL(cfg.Addr, cfg.Mount, cfg.Path, cfg.KVVersion)
	if err != nil {
		return result, err
	}

	client := &http.Client{Timeout: cfg.Timeout}
	var data map[string]any

	policy := retry.DefaultConfig()
	policy.MaxAttempts = 3
	policy.Retryable = func(err error) bool {
		var statusErr *vaultStatusError
		return !errors.As(err, &statusErr) || statusErr.StatusCode >= 500
	}
	err = retry.Do(ctx, policy, func(int) error {
		var fetchErr error
		data, fetchErr = fetchVaultData(ctx, client, url, cfg)
		return fetchErr
	})
	if err != nil {
		return result, err
	}

	for _, key := range cfg.Keys {
		key = strings.TrimSpace(key)
		value, ok := data[key]
		if key == "" || !ok {
			continue
		}
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped = append(result.Skipped, key)
			continue
		}
		if err := os.Setenv(key, stringifyVaultValue(value)); err != nil {
			return result, err
		}
		result.Loaded = append(result.Loaded, key)
	}
	return result, nil
}

type vaultStatusError struct {
	StatusCode int
	Body       string
}

func (e *vaultStatusError) Error() string {
	return fmt.Sprintf("vault fetch failed: HTTP %d %s", e.StatusCode, e.Body)
}

type kvV1Response struct {
	Data map[string]any `json:"data"`
}

type kvV2Response struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

func fetchVaultData(ctx context.Context, client *http.Client, url string, cfg VaultConfig) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", cfg.Namespace)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &vaultStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if cfg.KVVersion == 1 {
		var v1 kvV1Response
		if err := json.Unmarshal(body, &v1); err != nil {
			return nil, err
		}
		if v1.Data == nil {
			return nil, errors.New("vault response missing data for KV v1")
		}
		return v1.Data, nil
	}

	var v2 kvV2Response
	if err := json.Unmarshal(body, &v2); err != nil {
		return nil, err
	}
	if v2.Data.Data == nil {
		return nil, errors.New("vault response missing data for KV v2")
	}
	return v2.Data.Data, nil
}

func buildVaultURL(addr, mount, path string, kvVersion int) (string, error) {
	addr = strings.TrimRight(addr, "/")
	mount = strings.Trim(mount, "/")
	path = strings.TrimLeft(path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount, and path must be set")
	}
	if kvVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

func stringifyVaultValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
