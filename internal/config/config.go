// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Helplines     []Helpline          `mapstructure:"helplines"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
// Provider 取值 openai（OpenAI 兼容接口）或 gemini。
type LLMConfig struct {
	Provider       string              `mapstructure:"provider"`
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// IdentityConfig 存储匿名身份令牌的配置。
type IdentityConfig struct {
	Secret          string `mapstructure:"secret"`
	TokenExpireDays int    `mapstructure:"token_expire_days"`
}

// AdminConfig 存储管理员登录凭证与会话配置。
// PasswordHash 为 bcrypt 哈希。
type AdminConfig struct {
	ID                string `mapstructure:"id"`
	Email             string `mapstructure:"email"`
	PasswordHash      string `mapstructure:"password_hash"`
	SessionSecret     string `mapstructure:"session_secret"`
	SessionMaxAgeHour int    `mapstructure:"session_max_age_hours"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时反馈任务在进程内执行。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空时不启用搜索。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。Endpoint 为空时不启用导出。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	URLExpireMinute int    `mapstructure:"url_expire_minutes"`
}

// Helpline 是一条危机求助热线。
type Helpline struct {
	Name        string `mapstructure:"name" json:"name"`
	Number      string `mapstructure:"number" json:"number"`
	Description string `mapstructure:"description" json:"description"`
}

// DefaultHelplines 在配置未提供热线列表时使用。
var DefaultHelplines = []Helpline{
	{Name: "Tele MANAS (Govt. of India)", Number: "14416", Description: "The national tele-mental health programme of India."},
	{Name: "Vandrevala Foundation", Number: "9999666555", Description: "A non-profit for mental health in India, offering free counseling."},
	{Name: "AASRA", Number: "9820466726", Description: "24/7 helpline for those who are distressed and depressed."},
	{Name: "iCALL", Number: "022-25521111", Description: "A psychosocial helpline run by TISS, available Mon-Sat."},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.mysql.auto_migrate", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("identity.token_expire_days", 365)
	v.SetDefault("admin.id", "hardcoded_admin")
	v.SetDefault("admin.session_max_age_hours", 24)
	v.SetDefault("kafka.topic", "whispr-feedback")
	v.SetDefault("kafka.group_id", "whispr-feedback-consumer")
	v.SetDefault("elasticsearch.index_name", "whispr_posts")
	v.SetDefault("minio.bucket_name", "whispr-exports")
	v.SetDefault("minio.url_expire_minutes", 60)
}

// Load 从指定的路径读取 YAML 文件，环境变量 WHISPR_* 覆盖同名配置项。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WHISPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if len(conf.Helplines) == 0 {
		conf.Helplines = DefaultHelplines
	}
	return &conf, nil
}
