package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the CLI and library need from the environment.
// Endpoint defaults point at the college data service; override them when
// running against a staging provider or the in-process test provider.
type Config struct {
	AuthURL  string `env:"CAMPUSAUTH_AUTH_URL" envDefault:"https://data.psc.ac.uk/oauth/v2/auth"`
	TokenURL string `env:"CAMPUSAUTH_TOKEN_URL" envDefault:"https://data.psc.ac.uk/oauth/v2/token"`
	UserURL  string `env:"CAMPUSAUTH_USER_URL" envDefault:"https://data.psc.ac.uk/api/user"`

	// CallbackAddr is the loopback address the redirect listener binds to.
	// Port 0 picks a free port; the redirect URI is derived from the bound
	// listener, not from this value.
	CallbackAddr string `env:"CAMPUSAUTH_CALLBACK_ADDR" envDefault:"127.0.0.1:0"`
	CallbackPath string `env:"CAMPUSAUTH_CALLBACK_PATH" envDefault:"/callback"`

	KeysFile        string `env:"CAMPUSAUTH_KEYS_FILE" envDefault:"keys.json"`
	CredentialsFile string `env:"CAMPUSAUTH_CREDENTIALS_FILE" envDefault:""`

	// RedisURL switches the credential store to the Redis backend when set.
	RedisURL string `env:"CAMPUSAUTH_REDIS_URL" envDefault:""`

	// ServiceName scopes secrets in the credential store, the same way the
	// keychain service name scoped them on device. AccessGroup is optional
	// and further namespaces secrets shared between installs.
	ServiceName string `env:"CAMPUSAUTH_SERVICE_NAME" envDefault:"CampusAuth"`
	AccessGroup string `env:"CAMPUSAUTH_ACCESS_GROUP" envDefault:""`

	HTTPTimeout  time.Duration `env:"CAMPUSAUTH_HTTP_TIMEOUT" envDefault:"30s"`
	LoginTimeout time.Duration `env:"CAMPUSAUTH_LOGIN_TIMEOUT" envDefault:"5m"`
	LogLevel     string        `env:"CAMPUSAUTH_LOG_LEVEL" envDefault:"info"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Keys is the client identifier/secret pair used to authenticate this
// application with the data service. The pair is loaded once per process from
// a JSON file that is deliberately kept out of source control:
//
//	{
//	    "client_id": "client_id_goes_here",
//	    "secret": "secret_goes_here"
//	}
type Keys struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

// LoadKeys reads and decodes the keys file. A missing or malformed file is an
// unrecoverable configuration error: nothing can authenticate without keys.
func LoadKeys(path string) (Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keys{}, fmt.Errorf("read keys file %s: %w", path, err)
	}

	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return Keys{}, fmt.Errorf("decode keys file %s: %w", path, err)
	}
	if keys.ClientID == "" || keys.Secret == "" {
		return Keys{}, fmt.Errorf("keys file %s: client_id and secret must both be set", path)
	}
	return keys, nil
}
