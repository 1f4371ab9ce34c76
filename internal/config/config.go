package config

import (
	"log"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Batch    BatchConfig    `mapstructure:"batch"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	ConsumeResult string `mapstructure:"consume_result"`
}

// BusinessConfig 消费引擎业务参数
type BusinessConfig struct {
	OfflineCeiling     int64 `mapstructure:"offline_ceiling"`      // 脱机单笔上限（分），保守值
	SwipeLockSeconds   int   `mapstructure:"swipe_lock_seconds"`   // 重复刷卡锁时长
	MaxRetryCount      int   `mapstructure:"max_retry_count"`      // 发件箱投递重试上限
	ReconcileRetries   int   `mapstructure:"reconcile_retries"`    // 补扣时乐观锁冲突重试次数
	DailyCounterTTLHrs int   `mapstructure:"daily_counter_ttl_hr"` // 每日限额计数器过期时间
}

// BatchConfig 批量处理器参数
type BatchConfig struct {
	ChunkSize      int `mapstructure:"chunk_size"`      // 每块条数
	Workers        int `mapstructure:"workers"`         // 工作协程数，0 表示 2*CPU
	QueueSize      int `mapstructure:"queue_size"`      // 任务队列容量
	TimeoutSeconds int `mapstructure:"timeout_seconds"` // 整批等待超时
}

// WorkerCount 返回实际工作协程数
func (c *BatchConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0) * 2
}

// Timeout 返回整批超时时长
func (c *BatchConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
