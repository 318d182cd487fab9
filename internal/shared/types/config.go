package types

// LogConf contains logging specific configuration
type LogConf struct {
	Level  string `ini:"level"`
	Format string `ini:"format"` // "console" (默认) 或 "json"
}

// SourceConf 描述候选代理列表的来源。
type SourceConf struct {
	Mode           string   `ini:"mode"`       // "local" 或 "remote"
	LocalFile      string   `ini:"local_file"` // mode=local 时使用
	URLs           []string `ini:"urls" delim:","`
	Format         string   `ini:"format"` // 远程源内容格式: "text" 或 "html"
	FetchTimeoutMs int      `ini:"fetch_timeout_ms"`
}

// CheckerConf 控制两阶段探测和批次调度。
type CheckerConf struct {
	BatchSize      int     `ini:"batch_size"`
	HTTPTimeoutMs  int     `ini:"http_timeout_ms"`
	WSTimeoutMs    int     `ini:"ws_timeout_ms"`
	HTTPTarget     string  `ini:"http_target"`
	WSTarget       string  `ini:"ws_target"`
	WSPayload      string  `ini:"ws_payload"`
	IPCheck        string  `ini:"ip_check"`        // "strict": 出口 IP 不一致直接拒绝; "off": 仅记录
	TLSFingerprint string  `ini:"tls_fingerprint"` // "go" 或 "randomized"
	LaunchRate     float64 `ini:"launch_rate"`     // 每秒启动的探测数, 0 表示不限制
}

// OutputConf 描述结果文件。
type OutputConf struct {
	File string `ini:"file"`
}

// Config 是 sieve 的统一配置结构体。
type Config struct {
	LogConf     `ini:"log"`
	SourceConf  `ini:"source"`
	CheckerConf `ini:"checker"`
	OutputConf  `ini:"output"`
}

const (
	SourceModeLocal  = "local"
	SourceModeRemote = "remote"

	SourceFormatText = "text"
	SourceFormatHTML = "html"

	IPCheckStrict = "strict"
	IPCheckOff    = "off"

	FingerprintGo         = "go"
	FingerprintRandomized = "randomized"
)
