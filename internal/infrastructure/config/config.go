package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT        JWTConfig
	OAuth      OAuthConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	AssetStore AssetStoreConfig
}

// JWTConfig is the token-signing surface. PrivateKeyPEM is only needed when
// asymmetric tokens are requested; leaving it empty makes those requests fail
// with a configuration error.
type JWTConfig struct {
	Audience      string `env:"JWT_AUDIENCE,       default=lms-api"`
	Issuer        string `env:"JWT_ISSUER,         default=http://localhost:8080/oauth2"`
	SecretKey     string `env:"JWT_SECRET_KEY"`
	Algorithm     string `env:"JWT_ALGORITHM,      default=HS256"`
	PrivateKeyPEM string `env:"JWT_PRIVATE_KEY_PEM"`
	// ExpirationSeconds is the default access-token lifetime.
	ExpirationSeconds int64 `env:"JWT_EXPIRATION_SECONDS, default=3600"`
	// IDTokenExpirationSeconds is the lifetime of legacy ID tokens.
	IDTokenExpirationSeconds int64 `env:"ID_TOKEN_EXPIRATION_SECONDS, default=30"`
}

type OAuthConfig struct {
	// AutoExpireAuthorizationCode keeps the deprecated global policy of
	// pre-expiring every authorization-code-grant token. The per-application
	// restricted marker is the canonical mechanism; this switch only exists
	// for clients that predate it.
	AutoExpireAuthorizationCode bool `env:"OAUTH_AUTOEXPIRE_AUTHORIZATION_CODE, default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=lms"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// AssetStoreConfig configures the MinIO/S3 static-asset backend.
type AssetStoreConfig struct {
	Endpoint      string `env:"ASSET_STORE_ENDPOINT,   default=localhost:9000"`
	AccessKey     string `env:"ASSET_STORE_ACCESS_KEY"`
	SecretKey     string `env:"ASSET_STORE_SECRET_KEY"`
	Bucket        string `env:"ASSET_STORE_BUCKET,     default=lms-static"`
	Region        string `env:"ASSET_STORE_REGION"`
	UseSSL        bool   `env:"ASSET_STORE_USE_SSL,    default=false"`
	PublicBaseURL string `env:"ASSET_STORE_PUBLIC_URL"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
