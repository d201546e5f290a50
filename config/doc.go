// Package config loads rpcclient configuration from files and the
// environment, and validates it.
//
// It uses Viper to read a YAML, JSON or TOML file, overlays environment
// variables carrying the configured prefix, and optionally loads a .env file
// with godotenv first.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("rpcclient", &cfg, config.WithEnvPrefix("RPCCLIENT"))
//	if err == nil {
//	    err = config.Validate(&cfg)
//	}
//
// With the RPCCLIENT prefix, RPCCLIENT_CLIENT_BASE_URL sets client.base_url.
package config
