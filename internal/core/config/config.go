package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// WSChannel 非空时启用跨实例广播中继
	WSChannel string `mapstructure:"ws_channel"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Mail 邮件投递配置。APIKey 为空 → demo 模式（只记日志不真发）
type Mail struct {
	APIKey         string `mapstructure:"api_key"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
	FallbackFrom   string `mapstructure:"fallback_from"` // 发信域未验证时的兜底身份
	BatchSize      int    `mapstructure:"batch_size"`
	BatchDelayMSec int    `mapstructure:"batch_delay_ms"`
}

type Waitlist struct {
	Capacity int64 `mapstructure:"capacity"` // 创始名额（仅展示，不拦截报名）
}

// Admin 后台控制台账号（密码存 bcrypt 哈希）
type Admin struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	DB       DB
	Redis    Redis    `mapstructure:"redis"`
	Mail     Mail     `mapstructure:"mail"`
	Waitlist Waitlist `mapstructure:"waitlist"`
	Admin    Admin    `mapstructure:"admin"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("waitlist.capacity", 500)
	v.SetDefault("mail.batch_size", 50)
	v.SetDefault("mail.batch_delay_ms", 1000)
	v.SetDefault("mail.fallback_from", "onboarding@resend.dev")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}
