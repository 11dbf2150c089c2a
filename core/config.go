package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the application-wide configuration. It is set once by LoadConfig
// at startup; tests get a minimal TestMode config via SetTestConfig.
var Conf *Config

type (
	ServerConfig struct {
		Host string
		Port int
	}

	DatabaseConfig struct {
		URI  string
		Name string
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		AppName  string

		SecretKey          string
		JWTExpirationDelta time.Duration

		DefaultFromEmailAddr string
		SendgridAPIKey       string
		RollbarToken         string
		FrontendBaseURL      string

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmailAddr}
}

// LoadConfig reads configuration from the environment, with an optional
// config/.env.<env> file loaded first.
func LoadConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Campus")
	v.SetDefault("secretKey", "x1u%ao)7#hy7l+qgz&p$f=8(bqjrd0mf52%ysim&iu!m90&5vb")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("defaultFromEmail", "no-reply@deloai.com")
	v.SetDefault("frontendBaseUrl", "https://deloai.com")
	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("databaseUri", "mongodb://localhost:27017")
	v.SetDefault("databaseName", "campus")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:                v.GetBool("debug"),
		TestMode:             v.GetBool("testMode"),
		Env:                  env,
		AppName:              v.GetString("appName"),
		SecretKey:            v.GetString("secretKey"),
		JWTExpirationDelta:   v.GetDuration("jwtExpirationDelta"),
		DefaultFromEmailAddr: v.GetString("defaultFromEmail"),
		SendgridAPIKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		FrontendBaseURL:      v.GetString("frontendBaseUrl"),
		Server: ServerConfig{
			Host: v.GetString("serverHost"),
			Port: v.GetInt("serverPort"),
		},
		Database: DatabaseConfig{
			URI:  v.GetString("databaseUri"),
			Name: v.GetString("databaseName"),
		},
	}
	return Conf
}

// SetTestConfig installs a minimal config for package tests.
func SetTestConfig() *Config {
	Conf = &Config{
		Debug:                true,
		TestMode:             true,
		Env:                  "TEST",
		AppName:              "Campus",
		SecretKey:            "test-secret",
		JWTExpirationDelta:   time.Hour,
		DefaultFromEmailAddr: "no-reply@localhost",
		FrontendBaseURL:      "http://localhost:3000",
	}
	return Conf
}
