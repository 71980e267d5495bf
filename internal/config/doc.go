// Package config loads, normalizes, and validates person-discovery robot
// configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PD_REDIS_ADDR and PD_STORE_PATH. The Config type centralizes the resource
// names (corpus, layers, queues, principals) every robot resolves at startup
// together with the per-role timing and policy knobs.
//
// Always obtain settings through this package so robots receive sanitized
// paths, canonical queue names, and clear validation errors.
package config
