package cli

import (
	"os"

	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/nbsecrets/internal/config"
	"github.com/semmy-space/nbsecrets/internal/log"
	"github.com/semmy-space/nbsecrets/internal/secrets"
)

// CompletionOptions returns the predictors referenced by predictor tags.
func CompletionOptions() []kongplete.Option {
	return []kongplete.Option{
		kongplete.WithPredictor("backend", complete.PredictSet(secrets.Backends...)),
		kongplete.WithPredictor("config_key", complete.PredictSet(config.Keys()...)),
		kongplete.WithPredictor("service", complete.PredictFunc(predictServices)),
	}
}

// predictServices completes service names from the configured store.
// Failures yield no suggestions; completion must never print errors.
func predictServices(complete.Args) []string {
	path := os.Getenv("NBSECRETS_CONFIG")
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil
	}

	backend := os.Getenv("NBSECRETS_BACKEND")
	if backend == "" {
		backend = cfg.Backend
	}
	app := newApp(cfg, &Globals{Backend: backend, StoreFile: os.Getenv("NBSECRETS_STORE_FILE")}, StdStreams(), log.Nop())

	entries, err := listEntries(app)
	if err != nil {
		return nil
	}
	return serviceNames(entries)
}

// serviceNames returns the distinct services of entries, in order.
func serviceNames(entries []secrets.Entry) []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		if !seen[e.Service] {
			seen[e.Service] = true
			names = append(names, e.Service)
		}
	}
	return names
}
