package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// loadAPIKeysFromEnv overlays post-process provider API keys from the
// process environment and an optional .env file in the settings directory,
// so secrets never have to live in the plaintext TOML settings file.
// Variable naming: CODICTATE_<PROVIDER_ID_UPPER>_API_KEY.
func loadAPIKeysFromEnv(s *Settings) {
	if dir := filepath.Dir(DefaultPath()); dir != "." {
		envPath := filepath.Join(dir, ".env")
		if vars, err := godotenv.Read(envPath); err == nil {
			for k, v := range vars {
				applyAPIKeyEnvVar(s, k, v)
			}
		}
	}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		applyAPIKeyEnvVar(s, parts[0], parts[1])
	}
}

func applyAPIKeyEnvVar(s *Settings, key, value string) {
	const prefix = "CODICTATE_"
	const suffix = "_API_KEY"
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return
	}
	providerID := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix))
	if providerID == "" || value == "" {
		return
	}
	s.SetAPIKey(providerID, value)
}
