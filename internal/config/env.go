package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Environment overrides.
const (
	EnvWorkers  = "AUGMENT_WORKERS"
	EnvSeed     = "AUGMENT_SEED"
	EnvLogLevel = "AUGMENT_LOG_LEVEL"
)

// LoadEnv loads variables from the given dotenv files into the process
// environment without overriding variables that are already set. With no
// arguments it reads .env in the working directory. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "failed to load %q", f)
		}
		klog.V(1).Infof("loaded environment from %s", f)
	}
	return nil
}

// ApplyEnv overrides Workers and Seed from the environment. Malformed values
// are logged and ignored.
func (s *Settings) ApplyEnv() {
	if v := getEnv(EnvWorkers, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			klog.Warningf("ignoring %s=%q: want a positive integer", EnvWorkers, v)
		} else {
			s.Workers = n
		}
	}
	if v := getEnv(EnvSeed, ""); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			klog.Warningf("ignoring %s=%q: want an unsigned integer", EnvSeed, v)
		} else {
			s.Seed = &seed
		}
	}
}

// LogLevel returns the configured log level, "info" by default.
func LogLevel() string {
	return getEnv(EnvLogLevel, "info")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
