package usage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

const catalogCacheFile = "providers.json"

// LoadProviders returns the model catalog used for pricing and provider
// resolution. The catwalk service is tried first (CATWALK_URL overrides the
// endpoint); on failure the copy cached under dataDir by a previous run is
// used. A nil result means no catalog is available, in which case accounting
// relies on explicit cost figures from the gateway.
func LoadProviders(dataDir string) []catwalk.Provider {
	cachePath := filepath.Join(dataDir, catalogCacheFile)

	providers, err := catwalk.New().GetProviders()
	if err == nil && len(providers) > 0 {
		cacheProviders(cachePath, providers)
		return providers
	}
	slog.Warn("failed to fetch provider catalog, trying cache", "error", err)

	data, rerr := os.ReadFile(cachePath)
	if rerr != nil {
		slog.Warn("no cached provider catalog", "error", rerr)
		return nil
	}
	if err := json.Unmarshal(data, &providers); err != nil {
		slog.Warn("failed to parse cached provider catalog", "error", err)
		return nil
	}
	return providers
}

func cacheProviders(path string, providers []catwalk.Provider) {
	data, err := json.Marshal(providers)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		slog.Warn("failed to cache provider catalog", "error", err)
	}
}
