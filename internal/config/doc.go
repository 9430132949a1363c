// Package config loads the application configuration.
//
// Resolution order: built-in defaults, then an optional YAML file
// (config.yaml or configs/config.yaml), then INSIGHT_* environment
// variables. Later sources override earlier ones. Load validates the result
// before handing it out.
package config
