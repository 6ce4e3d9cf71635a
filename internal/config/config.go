package config

import (
	"os"
	"strconv"
	"time"
)

type ZarinpalConfig struct {
	MerchantID string
	Sandbox    bool
}

type RayanPayConfig struct {
	MerchantID string
	APIKey     string
	Sandbox    bool
}

type ParsianConfig struct {
	LoginAccount string
}

// Config is the static startup surface: endpoints, the default gateway and
// per-provider credentials. Credentials never hot-reload; the registry makes
// the per-call provider choice dynamic instead.
type Config struct {
	Port            int
	RedisHost       string
	RabbitURL       string
	GatewayTimeout  time.Duration
	DefaultGateway  string
	CallbackBaseURL string
	Zarinpal        ZarinpalConfig
	RayanPay        RayanPayConfig
	Parsian         ParsianConfig
}

func Default() Config {
	return Config{
		Port:           8080,
		GatewayTimeout: 10 * time.Second,
		DefaultGateway: "zarinpal",
	}
}

func FromEnv() Config {
	c := Default()
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.RabbitURL = v
	}
	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GatewayTimeout = d
		}
	}
	if v := os.Getenv("DEFAULT_GATEWAY"); v != "" {
		c.DefaultGateway = v
	}
	if v := os.Getenv("CALLBACK_BASE_URL"); v != "" {
		c.CallbackBaseURL = v
	}
	if v := os.Getenv("ZARINPAL_MERCHANT_ID"); v != "" {
		c.Zarinpal.MerchantID = v
	}
	c.Zarinpal.Sandbox = boolEnv("ZARINPAL_SANDBOX")
	if v := os.Getenv("RAYANPAY_MERCHANT_ID"); v != "" {
		c.RayanPay.MerchantID = v
	}
	if v := os.Getenv("RAYANPAY_API_KEY"); v != "" {
		c.RayanPay.APIKey = v
	}
	c.RayanPay.Sandbox = boolEnv("RAYANPAY_SANDBOX")
	if v := os.Getenv("PARSIAN_LOGIN_ACCOUNT"); v != "" {
		c.Parsian.LoginAccount = v
	}
	return c
}

func boolEnv(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE":
		return true
	}
	return false
}
