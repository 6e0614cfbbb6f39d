// Package config loads typed configuration from environment variables.
//
// Struct fields are tagged for github.com/caarlos0/env. A .env file is loaded
// once through github.com/joho/godotenv before the first parse, and every
// configuration type is parsed only once per process:
//
//	type Config struct {
//		Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
