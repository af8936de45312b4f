// Package config defines the service configuration, its defaults,
// loading, and validation.
//
// Configuration is YAML with environment variable overrides in the
// form FORGE_SECTION_FIELD (e.g. FORGE_SERVER_LISTEN_ADDRESS), applied
// after the file and before validation. A singleton accessor exists
// for the CLI entrypoints; library code takes *Config explicitly.
package config
