package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	dataFolderVar = "FOLDER"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetDataFolder() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go Token Server")
}

// GetBaseURL returns the base URL of this server (e.g. "https://auth.example.com").
// It is used as the token issuer and to derive the token endpoint URL that
// client assertions must name as their audience.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetDataFolder returns the folder holding the client directory database.
func (EnvVars) GetDataFolder() string {
	return GetEnv(dataFolderVar, "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
