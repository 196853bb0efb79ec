package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务器监听端口
	Mode string `mapstructure:"mode"` // 运行模式：debug、release
}

type StorageConfig struct {
	AccountsFile string `mapstructure:"accounts_file"` // 账户数据库 JSON 文件路径
}

type StreamConfig struct {
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"` // SSE 心跳间隔（秒）
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`        // 会话 Token 签名密钥
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"` // 会话 Token 有效期（分钟）
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)   // 指定配置文件
	v.SetConfigType("yaml") // 指定文件类型

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.accounts_file", "data/accounts.json")
	v.SetDefault("stream.heartbeat_seconds", 15)
	v.SetDefault("auth.token_ttl_minutes", 60)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &conf, nil
}
