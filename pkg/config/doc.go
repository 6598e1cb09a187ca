// Package config loads typed configuration structs from environment
// variables, with an optional .env file for local development.
//
// Every component of the service declares its own Config struct with env
// tags and loads it independently:
//
//	var cfg resilience.Config
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
//
// Load caches by struct type, so a config loaded once stays stable for the
// process lifetime no matter how many components ask for it.
package config
