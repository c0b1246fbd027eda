package libfault

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors spec.md §6's three environment variables. Truthy
// values are parsed with the spec's own set rather than caarlos0/env's
// built-in strconv.ParseBool, since {yes,y,on,true} is wider than what
// ParseBool accepts.
type envConfig struct {
	AbortHandler string `env:"LIBFAULT_ABORT_HANDLER" envDefault:"yes"`
	BeepOnAbort  string `env:"LIBFAULT_BEEP_ON_ABORT" envDefault:"no"`
	StopOnAbort  string `env:"LIBFAULT_STOP_ON_ABORT" envDefault:"no"`
}

func parseEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, err
	}
	return cfg, nil
}

// isTruthy implements spec.md §6's recognized truthy values, matched
// case-insensitively: yes, y, on, true.
func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on", "true":
		return true
	default:
		return false
	}
}
