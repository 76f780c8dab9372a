// Package config loads notifykit configuration from environment variables
// into tagged structs using github.com/caarlos0/env/v11, after optionally
// reading .env files with github.com/joho/godotenv.
//
// Each configuration type is parsed once and cached, so components can call
// Load for their own struct without coordinating:
//
//	type Config struct {
//	    Interval    time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1m"`
//	    Concurrency int           `env:"WORKER_CONCURRENCY" envDefault:"8"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// LoadEnv reads explicit .env files; variables already present in the
// process environment are never overwritten. ResetCache clears parsed
// values and is intended for tests.
package config
