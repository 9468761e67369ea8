// Package config defines the YAML configuration model for the RDAP
// gateway, its loader with environment variable substitution, the
// validator, and a file watcher for hot-reloading the admission limit.
package config
