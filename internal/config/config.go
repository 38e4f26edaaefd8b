package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Log     LogConfig     `mapstructure:"log"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Gateway GatewayConfig `mapstructure:"gateway"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RelayConfig 描述中继的上游与客户端调用配置。
type RelayConfig struct {
	// BackendURL 是唯一的后端网关地址，为空时中继返回 Misconfigured。
	BackendURL string `mapstructure:"backend_url"`
	// Endpoint 是客户端调用中继的地址。
	Endpoint string `mapstructure:"endpoint"`
	// ClientTimeout 为 0 表示不设超时。
	ClientTimeout time.Duration `mapstructure:"client_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GatewayConfig 描述开发用后端网关。
type GatewayConfig struct {
	Addr         string       `mapstructure:"addr"`
	Provider     string       `mapstructure:"provider"`
	SystemPrompt string       `mapstructure:"system_prompt"`
	Ark          AIConfig     `mapstructure:"ark"`
	OpenAI       OpenAIConfig `mapstructure:"openai"`
	Gemini       GeminiConfig `mapstructure:"gemini"`
}

// AIConfig 描述 Ark 大模型相关配置。
type AIConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	AccessKey   string   `mapstructure:"access_key"`
	SecretKey   string   `mapstructure:"secret_key"`
	Model       string   `mapstructure:"model"`
	BaseURL     string   `mapstructure:"base_url"`
	Region      string   `mapstructure:"region"`
	Temperature *float64 `mapstructure:"-"`
	TopP        *float64 `mapstructure:"-"`
	MaxTokens   *int     `mapstructure:"-"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// env 绑定：配置键 -> 环境变量。
var envBindings = map[string]string{
	"server.addr":             "PORT",
	"relay.backend_url":       "LLM_BACKEND_URL",
	"relay.endpoint":          "RELAY_ENDPOINT",
	"relay.client_timeout":    "RELAY_CLIENT_TIMEOUT",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
	"cors.allowed_origins":    "CORS_ALLOWED_ORIGINS",
	"gateway.addr":            "GATEWAY_ADDR",
	"gateway.provider":        "GATEWAY_PROVIDER",
	"gateway.system_prompt":   "GATEWAY_SYSTEM_PROMPT",
	"gateway.ark.api_key":     "ARK_API_KEY",
	"gateway.ark.access_key":  "ARK_ACCESS_KEY",
	"gateway.ark.secret_key":  "ARK_SECRET_KEY",
	"gateway.ark.model":       "ARK_MODEL",
	"gateway.ark.base_url":    "ARK_BASE_URL",
	"gateway.ark.region":      "ARK_REGION",
	"gateway.ark.temperature": "ARK_TEMPERATURE",
	"gateway.ark.top_p":       "ARK_TOP_P",
	"gateway.ark.max_tokens":  "ARK_MAX_TOKENS",
	"gateway.openai.api_key":  "OPENAI_API_KEY",
	"gateway.openai.base_url": "OPENAI_BASE_URL",
	"gateway.openai.model":    "OPENAI_MODEL",
	"gateway.gemini.api_key":  "GEMINI_API_KEY",
	"gateway.gemini.model":    "GEMINI_MODEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "8080")
	v.SetDefault("relay.backend_url", "")
	v.SetDefault("relay.endpoint", "http://localhost:8080/api/proxyLLM")
	v.SetDefault("relay.client_timeout", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("gateway.addr", "8081")
	v.SetDefault("gateway.provider", "ark")
	v.SetDefault("gateway.system_prompt", "You are a helpful assistant.")
	v.SetDefault("gateway.ark.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("gateway.ark.region", "cn-beijing")
	v.SetDefault("gateway.openai.model", "gpt-4o-mini")
	v.SetDefault("gateway.gemini.model", "gemini-1.5-flash")
}

// Load 读取可选的 YAML 配置文件，再由环境变量覆盖。configPath 为空时只使用环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
	}

	if strings.TrimSpace(configPath) != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configPath)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	var err error
	if cfg.Server.Addr, err = normalizeAddr("PORT", cfg.Server.Addr); err != nil {
		return nil, err
	}
	if cfg.Gateway.Addr, err = normalizeAddr("GATEWAY_ADDR", cfg.Gateway.Addr); err != nil {
		return nil, err
	}
	if cfg.Relay.ClientTimeout < 0 {
		return nil, fmt.Errorf("invalid RELAY_CLIENT_TIMEOUT value %q", v.GetString("relay.client_timeout"))
	}
	cfg.Relay.BackendURL = strings.TrimSpace(cfg.Relay.BackendURL)
	cfg.Gateway.Provider = strings.ToLower(strings.TrimSpace(cfg.Gateway.Provider))
	cfg.CORS.AllowedOrigins = splitOrigins(cfg.CORS.AllowedOrigins)

	if cfg.Gateway.Ark.Temperature, err = parseOptionalFloat(v, "gateway.ark.temperature"); err != nil {
		return nil, err
	}
	if cfg.Gateway.Ark.TopP, err = parseOptionalFloat(v, "gateway.ark.top_p"); err != nil {
		return nil, err
	}
	if cfg.Gateway.Ark.MaxTokens, err = parseOptionalInt(v, "gateway.ark.max_tokens"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalizeAddr 解析监听地址，允许 "8080"、":8080" 或 "127.0.0.1:8080"。
func normalizeAddr(name, raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid %s value: %q", name, port)
	}
	return ":" + port, nil
}

func splitOrigins(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", envBindings[key], value, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", envBindings[key], value, err)
	}
	return &val, nil
}
