package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchsync/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 3001,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	logFormat = configVar[string]{
		envKey:       "SERVER_LOG_FORMAT",
		flagKey:      "log-format",
		defaultValue: "json",
		usage:        "Log format (json or text)",
	}
	allowedOrigins = configVar[[]string]{
		envKey:       "SERVER_ALLOWED_ORIGINS",
		flagKey:      "allowed-origins",
		defaultValue: nil,
		usage:        "Allowed CORS and websocket origins, empty allows all",
	}
	requireAllReady = configVar[bool]{
		envKey:       "SERVER_REQUIRE_ALL_READY",
		flagKey:      "require-all-ready",
		defaultValue: false,
		usage:        "Reject play until every participant is ready",
	}
	streamURL = configVar[string]{
		envKey:       "SERVER_STREAM_URL",
		flagKey:      "stream-url",
		defaultValue: "",
		usage:        "HLS playlist served to clients",
	}
	sendBuffer = configVar[int]{
		envKey:       "SERVER_SEND_BUFFER",
		flagKey:      "send-buffer",
		defaultValue: 256,
		usage:        "Outbound messages buffered per connection",
	}
	pingPeriod = configVar[time.Duration]{
		envKey:       "SERVER_PING_PERIOD",
		flagKey:      "ping-period",
		defaultValue: 54 * time.Second,
		usage:        "Websocket ping period",
	}
	sessionTTL = configVar[time.Duration]{
		envKey:       "SERVER_SESSION_TTL",
		flagKey:      "session-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "Guest session lifetime",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
		usage:        "Redis host, empty keeps sessions in memory",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.String(logFormat.flagKey, logFormat.defaultValue, logFormat.usage)
	pflag.StringSlice(allowedOrigins.flagKey, allowedOrigins.defaultValue, allowedOrigins.usage)
	pflag.Bool(requireAllReady.flagKey, requireAllReady.defaultValue, requireAllReady.usage)
	pflag.String(streamURL.flagKey, streamURL.defaultValue, streamURL.usage)
	pflag.Int(sendBuffer.flagKey, sendBuffer.defaultValue, sendBuffer.usage)
	pflag.Duration(pingPeriod.flagKey, pingPeriod.defaultValue, pingPeriod.usage)
	pflag.Duration(sessionTTL.flagKey, sessionTTL.defaultValue, sessionTTL.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	host.bind()
	port.bind()
	logLevel.bind()
	logFormat.bind()
	allowedOrigins.bind()
	requireAllReady.bind()
	streamURL.bind()
	sendBuffer.bind()
	pingPeriod.bind()
	sessionTTL.bind()
	redisHost.bind()
	redisPort.bind()
	redisPassword.bind()

	config := &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		LogFormat:       viper.GetString(logFormat.flagKey),
		AllowedOrigins:  viper.GetStringSlice(allowedOrigins.flagKey),
		RequireAllReady: viper.GetBool(requireAllReady.flagKey),
		StreamURL:       viper.GetString(streamURL.flagKey),
		SendBuffer:      viper.GetInt(sendBuffer.flagKey),
		PingPeriod:      viper.GetDuration(pingPeriod.flagKey),
		SessionTTL:      viper.GetDuration(sessionTTL.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
