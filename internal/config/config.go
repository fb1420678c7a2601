package config

type Config interface {
	EnvConfig
	SessionConfig
	StoreConfig
}

type mainConfig struct {
	EnvVars
	Session
	Store
}

func New() Config {
	return mainConfig{}
}
