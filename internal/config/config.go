package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort     string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort   string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	JWTSecretKey string    `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY" env-required:"true"`
	PublicWSURL  string    `yaml:"public-ws-url" env:"PUBLIC_WS_URL" env-default:"ws://localhost:9091"`
	Redis        Redis     `yaml:"redis"`
	NATS         NATS      `yaml:"nats"`
	Room         Room      `yaml:"room"`
	WebSocket    WebSocket `yaml:"websocket"`
	History      History   `yaml:"history"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// NATS is optional; an empty URL disables event publishing.
type NATS struct {
	URL           string `yaml:"url" env:"NATS_URL" env-default:""`
	SubjectPrefix string `yaml:"subject-prefix" env:"NATS_SUBJECT_PREFIX" env-default:"tictactoe.rooms"`
}

type Room struct {
	IdleTimeout   time.Duration `yaml:"idle-timeout" env:"ROOM_IDLE_TIMEOUT" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"ROOM_SWEEP_INTERVAL" env-default:"1m"`
}

type WebSocket struct {
	SendBuffer     int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"64"`
	WriteWait      time.Duration `yaml:"write-wait" env:"WS_WRITE_WAIT" env-default:"10s"`
	PongWait       time.Duration `yaml:"pong-wait" env:"WS_PONG_WAIT" env-default:"60s"`
	PingPeriod     time.Duration `yaml:"ping-period" env:"WS_PING_PERIOD" env-default:"54s"`
	MaxMessageSize int64         `yaml:"max-message-size" env:"WS_MAX_MESSAGE_SIZE" env-default:"4096"`
}

type History struct {
	QueueSize    int           `yaml:"queue-size" env:"HISTORY_QUEUE_SIZE" env-default:"1024"`
	WriteTimeout time.Duration `yaml:"write-timeout" env:"HISTORY_WRITE_TIMEOUT" env-default:"2s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads path and applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if config.WebSocket.PingPeriod >= config.WebSocket.PongWait {
		return nil, fmt.Errorf("websocket ping-period %s must be shorter than pong-wait %s",
			config.WebSocket.PingPeriod, config.WebSocket.PongWait)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
