package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		DisableTLS    bool
	}

	// GeoIPConfig configures the best-effort IP location lookups.
	// Lookups are disabled when IPInfoToken is empty.
	GeoIPConfig struct {
		IPInfoToken string
		Timeout     time.Duration
		RetryCount  int
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		Build    string
		AppName  string

		SecretKey        []byte
		DefaultFromEmail mail.Address

		// admin dashboard credentials; hash generated via `admin hashpassword`
		AdminEmail        string
		AdminPasswordHash string

		// static keys accepted by the combined auth middleware
		APIKeys []string

		SendgridAPIKey string
		RollbarToken   string

		// active visitor sessions are evicted after this long without a visit
		SessionTTL time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		GeoIP    GeoIPConfig
	}
)

func (c DatabaseConfig) Address() string { return c.Host }

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Duka")
	conf.SetDefault("secretKey", "w3j+2l)q^bn$+g4=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("adminEmail", "admin@localhost")
	conf.SetDefault("adminPasswordHash", "")
	conf.SetDefault("apiKeys", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sessionTTL", 15*time.Minute)
	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "duka")
	conf.SetDefault("dbUser", "")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbHost", "localhost:5432")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("ipinfoToken", "")
	conf.SetDefault("ipinfoTimeout", 5*time.Second)
	conf.SetDefault("ipinfoRetryCount", 2)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	var apiKeys []string
	for _, key := range strings.Split(conf.GetString("apiKeys"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			apiKeys = append(apiKeys, key)
		}
	}

	return &Config{
		Env:               env,
		Debug:             conf.GetBool("debug"),
		TestMode:          testMode,
		Build:             conf.GetString("build"),
		AppName:           conf.GetString("appName"),
		SecretKey:         []byte(conf.GetString("secretKey")),
		DefaultFromEmail:  mail.Address{Address: conf.GetString("defaultFromEmail")},
		AdminEmail:        conf.GetString("adminEmail"),
		AdminPasswordHash: conf.GetString("adminPasswordHash"),
		APIKeys:           apiKeys,
		SendgridAPIKey:    conf.GetString("sendgridApiKey"),
		RollbarToken:      conf.GetString("rollbarToken"),
		SessionTTL:        conf.GetDuration("sessionTTL"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			Host:          conf.GetString("dbHost"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		GeoIP: GeoIPConfig{
			IPInfoToken: conf.GetString("ipinfoToken"),
			Timeout:     conf.GetDuration("ipinfoTimeout"),
			RetryCount:  conf.GetInt("ipinfoRetryCount"),
		},
	}
}
