// Package config loads and validates application configuration.
//
// Configuration comes from two layers. An optional YAML file (pointed at by
// RELATO_CONFIG_FILE) supplies base values, and RELATO_* environment
// variables override it. LoadConfig applies both layers and validates the
// result, so a process that starts is a process with usable configuration.
//
// Usage:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	server := api.NewServer(cfg, ...)
package config
