package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"proxysieve/internal/shared/types"
)

var ErrInvalidConfig = errors.New("invalid config")

// Default 返回与原始脚本一致的默认配置。
func Default() *types.Config {
	return &types.Config{
		LogConf: types.LogConf{
			Level:  "info",
			Format: "console",
		},
		SourceConf: types.SourceConf{
			Mode:           types.SourceModeLocal,
			LocalFile:      "public/proxies.txt",
			Format:         types.SourceFormatText,
			FetchTimeoutMs: 15000,
		},
		CheckerConf: types.CheckerConf{
			BatchSize:      100,
			HTTPTimeoutMs:  3000,
			WSTimeoutMs:    3000,
			HTTPTarget:     "https://api.ipify.org",
			WSTarget:       "wss://ws.postman-echo.com/raw",
			WSPayload:      "ping",
			IPCheck:        types.IPCheckStrict,
			TLSFingerprint: types.FingerprintGo,
		},
		OutputConf: types.OutputConf{
			File: "public/found.txt",
		},
	}
}

// LoadIni 在 cfg 之上加载 ini 文件, 文件中没有的键保留原值。
// 文件不存在时不算错误, 返回 false。
func LoadIni(cfg *types.Config, fileName string) (bool, error) {
	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return false, err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyEnv 用环境变量覆盖配置。
func ApplyEnv(cfg *types.Config) {
	overrideFromEnvInt(&cfg.CheckerConf.BatchSize, "SIEVE_BATCH_SIZE")
	overrideFromEnvInt(&cfg.CheckerConf.HTTPTimeoutMs, "SIEVE_HTTP_TIMEOUT_MS")
	overrideFromEnvInt(&cfg.CheckerConf.WSTimeoutMs, "SIEVE_WS_TIMEOUT_MS")
	overrideFromEnvString(&cfg.OutputConf.File, "SIEVE_OUTPUT_FILE")
	overrideFromEnvString(&cfg.LogConf.Level, "SIEVE_LOG_LEVEL")
	if v := os.Getenv("SIEVE_SOURCE_URLS"); v != "" {
		cfg.SourceConf.URLs = splitList(v)
		cfg.SourceConf.Mode = types.SourceModeRemote
	}
}

// Validate 检查配置是否可以启动一次运行。
func Validate(cfg *types.Config) error {
	c := cfg.CheckerConf
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.HTTPTimeoutMs <= 0 || c.WSTimeoutMs <= 0 {
		return fmt.Errorf("%w: timeouts must be positive (http=%d, ws=%d)", ErrInvalidConfig, c.HTTPTimeoutMs, c.WSTimeoutMs)
	}
	if c.LaunchRate < 0 {
		return fmt.Errorf("%w: launch_rate must not be negative", ErrInvalidConfig)
	}
	if err := checkURL(c.HTTPTarget, "http", "https"); err != nil {
		return fmt.Errorf("%w: http_target: %v", ErrInvalidConfig, err)
	}
	if err := checkURL(c.WSTarget, "ws", "wss"); err != nil {
		return fmt.Errorf("%w: ws_target: %v", ErrInvalidConfig, err)
	}
	switch c.IPCheck {
	case types.IPCheckStrict, types.IPCheckOff:
	default:
		return fmt.Errorf("%w: unknown ip_check '%s'", ErrInvalidConfig, c.IPCheck)
	}
	switch c.TLSFingerprint {
	case types.FingerprintGo, types.FingerprintRandomized:
	default:
		return fmt.Errorf("%w: unknown tls_fingerprint '%s'", ErrInvalidConfig, c.TLSFingerprint)
	}

	s := cfg.SourceConf
	switch s.Mode {
	case types.SourceModeLocal:
		if s.LocalFile == "" {
			return fmt.Errorf("%w: local_file is required in local mode", ErrInvalidConfig)
		}
	case types.SourceModeRemote:
		if len(s.URLs) == 0 {
			return fmt.Errorf("%w: urls is required in remote mode", ErrInvalidConfig)
		}
		for _, u := range s.URLs {
			if err := checkURL(u, "http", "https"); err != nil {
				return fmt.Errorf("%w: source url: %v", ErrInvalidConfig, err)
			}
		}
		if s.FetchTimeoutMs <= 0 {
			return fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source mode '%s'", ErrInvalidConfig, s.Mode)
	}
	switch s.Format {
	case types.SourceFormatText, types.SourceFormatHTML:
	default:
		return fmt.Errorf("%w: unknown source format '%s'", ErrInvalidConfig, s.Format)
	}

	if cfg.OutputConf.File == "" {
		return fmt.Errorf("%w: output file is required", ErrInvalidConfig)
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in '%s'", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme '%s' not allowed in '%s'", u.Scheme, raw)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
