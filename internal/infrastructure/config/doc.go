// Package config handles loading and validating lanlight configuration.
//
// Configuration is layered:
//   - built-in defaults
//   - the YAML file
//   - LANLIGHT_* environment variables
//
// Validate runs last and reports every problem at once.
//
// Secrets (MQTT password, InfluxDB token) should come from the environment
// rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.LAN.PollInterval)
package config
