package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	CRM    CRMConfig    `yaml:"crm"`
	Minio  MinioConfig  `yaml:"minio"`
	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CRMConfig points at the upstream CRM REST API that owns the dossiers,
// contacts and users resources.
type CRMConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIToken       string   `yaml:"api_token"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	RegieRole      string   `yaml:"regie_role"`
	ProjectTypes   []string `yaml:"project_types"` // fallback list when server data has none
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StoreConfig struct {
	MaxDossiers int `yaml:"max_dossiers"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.CRM.TimeoutSeconds == 0 {
		cfg.CRM.TimeoutSeconds = 30
	}
	if cfg.CRM.RegieRole == "" {
		cfg.CRM.RegieRole = "Régie"
	}
	if len(cfg.CRM.ProjectTypes) == 0 {
		cfg.CRM.ProjectTypes = []string{
			"Pompes a chaleur",
			"Panneaux photovoltaiques",
			"Chauffe-eau thermodynamique",
			"Isolation",
		}
	}
	if cfg.Minio.Bucket == "" {
		cfg.Minio.Bucket = "attestations"
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	GlobalConfig = &cfg
	return &cfg, nil
}
