package config

import (
	"errors"
	"fmt"
	"strings"

	"web3-token-agent/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	SelectDB      SelectDBConfig      `mapstructure:"selectdb"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	Server        ServerConfig        `mapstructure:"server"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Birdeye       ProviderConfig      `mapstructure:"birdeye"`
	DexScreener   ProviderConfig      `mapstructure:"dexscreener"`
	Moralis       MoralisConfig       `mapstructure:"moralis"`
	Helius        ProviderConfig      `mapstructure:"helius"`
	Launchpad     ProviderConfig      `mapstructure:"launchpad"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Twitter       TwitterConfig       `mapstructure:"twitter"`
	Custody       CustodyConfig       `mapstructure:"custody"`
	Wallet        WalletConfig        `mapstructure:"wallet"`
	Job           JobConfig           `mapstructure:"job"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

type AgentConfig struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	AutoChain bool   `mapstructure:"auto_chain"` // 回调里带 action 时自动派发一次
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enable         bool   `mapstructure:"enable"`
	Brokers        string `mapstructure:"brokers"`
	TopicMessages  string `mapstructure:"topic_messages"`
	TopicResponses string `mapstructure:"topic_responses"`
	GroupID        string `mapstructure:"group_id"`
	RateLimit      int    `mapstructure:"rate_limit"` // 每秒消费条数
	Workers        int    `mapstructure:"workers"`    // 按 room 分片的处理协程数
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SelectDBConfig 评分分析库（MySQL 协议），DSN 为空则不写
type SelectDBConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ElasticsearchConfig struct {
	Addresses        []string `mapstructure:"addresses"`
	Username         string   `mapstructure:"username"`
	Password         string   `mapstructure:"password"`
	RatingsIndexName string   `mapstructure:"ratings_index_name"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

type ServerConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // file | redis
	Dir        string `mapstructure:"dir"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// ProviderConfig 上游 HTTP 数据源通用配置
type ProviderConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	RateLimit        int    `mapstructure:"rate_limit"` // 每分钟请求数
	Timeout          int    `mapstructure:"timeout"`    // 秒
	MaxRetries       int    `mapstructure:"max_retries"`
	RetryBaseDelayMs int    `mapstructure:"retry_base_delay_ms"`
}

type MoralisConfig struct {
	ProviderConfig `mapstructure:",squash"`
	MaxHolders     int `mapstructure:"max_holders"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"`
}

type TwitterConfig struct {
	AuthToken string `mapstructure:"auth_token"`
	CSRFToken string `mapstructure:"csrf_token"`
	MaxPosts  int    `mapstructure:"max_posts"`
}

type CustodyConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	RateLimit      int    `mapstructure:"rate_limit"`
	Timeout        int    `mapstructure:"timeout"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
	PollTimeout    int    `mapstructure:"poll_timeout"` // 秒
}

type WalletConfig struct {
	EncryptionKey string   `mapstructure:"encryption_key"` // 64 位 hex
	EncryptionIV  string   `mapstructure:"encryption_iv"`  // 32 位 hex
	Chains        []string `mapstructure:"chains"`
	TradeNetwork  string   `mapstructure:"trade_network"`
	USDCAddress   string   `mapstructure:"usdc_address"`
	ETHAddress    string   `mapstructure:"eth_address"`
	ExplorerURL   string   `mapstructure:"explorer_url"`
}

type JobConfig struct {
	PendingTradesEnable   bool `mapstructure:"pending_trades_enable"`
	PendingTradesInterval int  `mapstructure:"pending_trades_interval"` // 秒
	PendingTradeWindow    int  `mapstructure:"pending_trade_window"`    // 秒
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"log.level":                         "info",
		"log.dir":                           "logs",
		"agent.id":                          "",
		"agent.name":                        "token-scout",
		"agent.auto_chain":                  false,
		"kafka.enable":                      false,
		"kafka.brokers":                     "",
		"kafka.topic_messages":              "agent_messages",
		"kafka.topic_responses":             "agent_responses",
		"kafka.group_id":                    "web3-token-agent",
		"kafka.rate_limit":                  50,
		"kafka.workers":                     4,
		"redis.address":                     "127.0.0.1:6379",
		"redis.password":                    "",
		"redis.db":                          0,
		"postgres.dsn":                      "",
		"selectdb.dsn":                      "",
		"elasticsearch.addresses":           []string{},
		"elasticsearch.username":            "",
		"elasticsearch.password":            "",
		"elasticsearch.ratings_index_name":  "token_ratings",
		"monitor.enable":                    false,
		"monitor.prometheus_addr":           ":9100",
		"server.enable":                     true,
		"server.addr":                       ":8080",
		"cache.backend":                     "file",
		"cache.dir":                         "data/cache",
		"cache.ttl_seconds":                 300,
		"birdeye.base_url":                  "https://public-api.birdeye.so",
		"birdeye.api_key":                   "",
		"birdeye.timeout":                   15,
		"dexscreener.base_url":              "https://api.dexscreener.com",
		"dexscreener.api_key":               "",
		"dexscreener.timeout":               15,
		"moralis.base_url":                  "https://deep-index.moralis.io",
		"moralis.api_key":                   "",
		"moralis.timeout":                   30,
		"moralis.max_holders":               2500,
		"helius.base_url":                   "https://mainnet.helius-rpc.com",
		"helius.api_key":                    "",
		"helius.timeout":                    30,
		"launchpad.base_url":                "",
		"launchpad.api_key":                 "",
		"launchpad.timeout":                 15,
		"openai.api_key":                    "",
		"openai.base_url":                   "",
		"openai.model":                      "gpt-4o-mini",
		"openai.temperature":                0.2,
		"openai.timeout":                    60,
		"twitter.auth_token":                "",
		"twitter.csrf_token":                "",
		"twitter.max_posts":                 30,
		"custody.base_url":                  "",
		"custody.api_key":                   "",
		"custody.timeout":                   30,
		"custody.poll_interval_ms":          2000,
		"custody.poll_timeout":              180,
		"wallet.encryption_key":             "",
		"wallet.encryption_iv":              "",
		"wallet.chains":                     []string{"base"},
		"wallet.trade_network":              "base",
		"wallet.usdc_address":               "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		"wallet.eth_address":                "eth",
		"wallet.explorer_url":               "https://basescan.org/tx/",
		"job.pending_trades_enable":         false,
		"job.pending_trades_interval":       60,
		"job.pending_trade_window":          3600,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load 读取 <dir>/config.worker.yaml 并叠加环境变量，文件不存在时只用默认值和环境变量
func Load(v *viper.Viper, dir string) (Config, error) {
	var config Config

	// .env 只补充未设置的环境变量
	_ = godotenv.Load()

	setDefaults(v)
	v.SetConfigName("config.worker")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config file: %w", err)
		}
	}

	// AllSettings 才会带上 AutomaticEnv 的覆盖值
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return config, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}
	return config, nil
}

func InitConfig() Config {
	config, err := Load(viper.GetViper(), "./config/")
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return config
}

// Validate 检查启动必需的配置项
func (c *Config) Validate() error {
	var errs []error
	if c.Agent.ID == "" {
		errs = append(errs, errors.New("agent.id is required"))
	}
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.Kafka.Enable && (c.Kafka.Brokers == "" || c.Kafka.TopicMessages == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic_messages are required when kafka is enabled"))
	}
	switch c.Cache.Backend {
	case "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be file or redis, got %q", c.Cache.Backend))
	}
	if len(c.Wallet.EncryptionKey) != 64 {
		errs = append(errs, errors.New("wallet.encryption_key must be 32 bytes hex"))
	}
	if len(c.Wallet.EncryptionIV) != 32 {
		errs = append(errs, errors.New("wallet.encryption_iv must be 16 bytes hex"))
	}
	if len(c.Wallet.Chains) == 0 {
		errs = append(errs, errors.New("wallet.chains must not be empty"))
	}
	return errors.Join(errs...)
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := InitConfig()
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}
