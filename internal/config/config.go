package config

type Config interface {
	EnvConfig
	OAuthConfig
	SecurityConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	Security
}

func New() Config {
	return mainConfig{}
}
