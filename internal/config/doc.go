// Package config loads the watcher's YAML configuration.
//
// Values of the form ${VAR} are expanded from the environment before
// parsing, so secrets (app token, database password) can stay out of the file.
package config
