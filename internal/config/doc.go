// Package config defines the typed configuration of ocpool.
//
// [Config] is read from a YAML file and completed from the environment:
// secrets (HCLOUD_TOKEN, CF_API_TOKEN, OCPOOL_SUBSCRIPTION_PASSWORD) and the
// WORKSPACE directory may be supplied as environment variables so they never
// have to be written to disk. Poll intervals and attempt budgets live in
// [Timeouts] and are read from OCPOOL_* environment variables.
package config
