package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Log          LogConfig          `mapstructure:"log"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Quota        QuotaConfig        `mapstructure:"quota"`
	MCP          MCPConfig          `mapstructure:"mcp"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	JWTSecret    string `mapstructure:"jwt_secret"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否自动迁移表结构
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接模式: standalone(单节点), sentinel(哨兵), cluster(集群)
	Mode string `mapstructure:"mode"`

	// 单节点模式配置
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 哨兵模式配置
	MasterName       string   `mapstructure:"master_name"`
	SentinelAddrs    []string `mapstructure:"sentinel_addrs"`
	SentinelPassword string   `mapstructure:"sentinel_password"`

	// 集群模式配置
	ClusterAddrs []string `mapstructure:"cluster_addrs"`

	// 通用配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// LLMConfig 模型网关与遗留提供方配置
type LLMConfig struct {
	Gateway GatewayConfig  `mapstructure:"gateway"`
	OpenAI  ProviderConfig `mapstructure:"openai"`
	Gemini  ProviderConfig `mapstructure:"gemini"`

	// 单次外呼总超时（秒），流式补全可能很长，默认 600
	RequestTimeout int `mapstructure:"request_timeout"`

	// 重试配置
	MaxRetries     int `mapstructure:"max_retries"`      // 最大重试次数，默认 3
	RetryBaseDelay int `mapstructure:"retry_base_delay"` // 退避基准（毫秒），默认 500
	RetryMaxDelay  int `mapstructure:"retry_max_delay"`  // 退避上限（毫秒），默认 8000
}

// GetRequestTimeout 单次外呼总超时
func (c *LLMConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return time.Duration(c.RequestTimeout) * time.Second
	}
	return 600 * time.Second
}

// GatewayConfig 多提供方网关配置（OpenAI 兼容协议）
type GatewayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// 网关声明支持的模型标识列表（provider/model 形式）
	Models []string `mapstructure:"models"`
}

// ProviderConfig 遗留单一提供方配置
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ConversationConfig 会话存储配置
type ConversationConfig struct {
	MaxHistory int    `mapstructure:"max_history"` // 单会话最大消息数，默认 100
	TTL        string `mapstructure:"ttl"`         // 会话空闲过期时间，默认 "24h"
}

// GetTTL 解析会话 TTL，非法值回退默认 24h
func (c *ConversationConfig) GetTTL() time.Duration {
	if d, err := time.ParseDuration(c.TTL); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// GetMaxHistory 返回单会话最大消息数
func (c *ConversationConfig) GetMaxHistory() int {
	if c.MaxHistory > 0 {
		return c.MaxHistory
	}
	return 100
}

// QuotaConfig 配额配置
type QuotaConfig struct {
	// 免费档月度 Token 上限，未分配套餐的租户按此上限计
	FreeTierMonthlyTokens int64 `mapstructure:"free_tier_monthly_tokens"`
}

// MCPConfig MCP 工具目录配置
type MCPConfig struct {
	RefreshTTL     string `mapstructure:"refresh_ttl"`     // 目录缓存有效期，默认 "5m"
	RequestTimeout int    `mapstructure:"request_timeout"` // 目录刷新超时（秒），默认 5
}

// GetRefreshTTL 解析目录缓存有效期
func (c *MCPConfig) GetRefreshTTL() time.Duration {
	if d, err := time.ParseDuration(c.RefreshTTL); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// GetRequestTimeout 目录刷新超时
func (c *MCPConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return time.Duration(c.RequestTimeout) * time.Second
	}
	return 5 * time.Second
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_DATABASE_HOST

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
