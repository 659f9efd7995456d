// Package config loads and validates the application configuration.
//
// Configuration is read from config.yml (YAML), with a .env file and
// process environment variables taking priority for deployment-specific
// values such as DATABASE_URL. Struct-tag validation runs on load and
// missing values fall back to the reference defaults.
package config
