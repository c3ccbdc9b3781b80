package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"LPChat/logger"
	"LPChat/tools/ids"
)

// AppConfig carries everything the gateway node needs to boot. Values
// come from the environment with the defaults below, so a bare `go run`
// against local docker services works out of the box.
type AppConfig struct {
	NodeID   string `env:"LP_NODE_ID"` // generated when unset
	HTTPAddr string `env:"LP_HTTP_ADDR" envDefault:":8080"`
	WSPath   string `env:"LP_WS_PATH" envDefault:"/ws"`

	RedisAddr     string `env:"LP_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"LP_REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"LP_REDIS_DB" envDefault:"0"`

	MongoURI      string `env:"LP_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"LP_MONGO_DB" envDefault:"lpchat"`
	MongoPoolSize int    `env:"LP_MONGO_POOL" envDefault:"20"`

	NatsURL string `env:"LP_NATS_URL" envDefault:"nats://127.0.0.1:4222"`

	JwtSecret string `env:"LP_JWT_SECRET" envDefault:"mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o="`

	// Unauthenticated websocket connections are swept after this grace.
	UnauthTTL time.Duration `env:"LP_UNAUTH_TTL" envDefault:"30s"`
	// Authorized connections whose heartbeat goes stale are swept after this.
	IdleTTL time.Duration `env:"LP_IDLE_TTL" envDefault:"5m"`
	// Presence entries expire after this TTL unless refreshed.
	PresenceTTL time.Duration `env:"LP_PRESENCE_TTL" envDefault:"2m"`
	// Bounded history page size served to clients.
	HistoryPageSize int `env:"LP_HISTORY_PAGE" envDefault:"50"`

	SnowflakeNode int64 `env:"LP_SNOWFLAKE_NODE" envDefault:"100"`
}

var Global = AppConfig{}

// Load fills Global from the environment and applies process-wide setup
// (snowflake node id).
func Load() (*AppConfig, error) {
	if err := env.Parse(&Global); err != nil {
		return nil, err
	}
	if Global.NodeID == "" {
		// two gateway nodes must never share an identity
		Global.NodeID = "gateway-" + uuid.NewString()[:8]
	}
	ids.SetNodeID(Global.SnowflakeNode)
	logger.Infof("config loaded node=%s http=%s", Global.NodeID, Global.HTTPAddr)
	return &Global, nil
}

func GetJwtSecret() []byte {
	if Global.JwtSecret == "" {
		return []byte("mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=")
	}
	return []byte(Global.JwtSecret)
}
