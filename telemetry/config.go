// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Level is the minimum severity the log subscriber will emit.
//
// The numeric values line up with zapcore levels, with trace sitting
// one step below debug.
type Level int8

const (
	LevelTrace Level = iota - 2
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel parses a case-insensitive level name. It accepts
// trace, debug, info, warn and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// String implements the fmt.Stringer interface.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// Protocol selects the OTLP transport used by the exporters.
type Protocol string

const (
	ProtocolHTTP Protocol = "http/protobuf"
	ProtocolGRPC Protocol = "grpc"
)

// ParseProtocol parses an OTLP protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http/protobuf", "http":
		return ProtocolHTTP, nil
	case "grpc":
		return ProtocolGRPC, nil
	default:
		return ProtocolHTTP, fmt.Errorf("unknown OTLP protocol: %q", s)
	}
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (p *Protocol) UnmarshalText(text []byte) error {
	proto, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = proto
	return nil
}

// Config holds everything needed to bring the observability stack up.
// It is consumed exactly once by Init and discarded afterwards.
type Config struct {
	ServiceName    string `mapstructure:"-"`
	ServiceVersion string `mapstructure:"-"`

	LogLevel Level `mapstructure:"log_level"`

	// An empty endpoint disables the corresponding pipeline.
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`
	TracingEndpoint string `mapstructure:"tracing_endpoint"`
	LogsEndpoint    string `mapstructure:"logs_endpoint"`

	Protocol Protocol `mapstructure:"telemetry_protocol"`
}

var envKeys = []string{
	"log_level",
	"metrics_endpoint",
	"tracing_endpoint",
	"logs_endpoint",
	"telemetry_protocol",
}

// configFromEnv derives a Config from the process environment.
//
// Unparseable LOG_LEVEL or TELEMETRY_PROTOCOL values fall back to their
// defaults rather than failing startup.
func configFromEnv(serviceName string) Config {
	v := viper.New()
	for _, key := range envKeys {
		v.MustBindEnv(key)
	}
	v.SetDefault("log_level", LevelInfo.String())
	v.SetDefault("telemetry_protocol", string(ProtocolHTTP))

	cfg := Config{
		ServiceName: serviceName,
		LogLevel:    LevelInfo,
		Protocol:    ProtocolHTTP,
	}
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc()))
	if err == nil {
		return cfg
	}

	cfg = Config{
		ServiceName:     serviceName,
		LogLevel:        LevelInfo,
		Protocol:        ProtocolHTTP,
		MetricsEndpoint: v.GetString("metrics_endpoint"),
		TracingEndpoint: v.GetString("tracing_endpoint"),
		LogsEndpoint:    v.GetString("logs_endpoint"),
	}
	if lvl, err := ParseLevel(v.GetString("log_level")); err == nil {
		cfg.LogLevel = lvl
	}
	if proto, err := ParseProtocol(v.GetString("telemetry_protocol")); err == nil {
		cfg.Protocol = proto
	}
	return cfg
}
