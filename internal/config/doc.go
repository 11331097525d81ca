// Package config loads, parses, and validates application configuration
// from an optional pharos.yaml file and PHAROS_-prefixed environment
// variables. It gives the rest of the application type-safe access to its
// settings while keeping configuration details out of business logic.
package config
