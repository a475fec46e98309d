package config

const (
	defaultLLMBaseURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultLLMModel     = "qwen-plus"
	defaultLLMMaxTokens = 2000

	defaultTransportBackend = "fetch"
	defaultTransportTimeout = "5m"

	defaultStorageDriver = "sqlite"

	defaultThrottleMs    = 80
	defaultOfflineStepMs = 500

	defaultAPIListen = ":8090"

	defaultEventStreamBackend = "nop"
	defaultEventStreamTopic   = "tarot.readings"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		LLM: LLMConfig{
			BaseURL:   defaultLLMBaseURL,
			Model:     defaultLLMModel,
			MaxTokens: defaultLLMMaxTokens,
		},
		Transport: TransportConfig{
			Backend: defaultTransportBackend,
			Timeout: defaultTransportTimeout,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Reading: ReadingConfig{
			ThrottleMs:    defaultThrottleMs,
			OfflineStepMs: defaultOfflineStepMs,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		EventStream: EventStreamConfig{
			Backend: defaultEventStreamBackend,
			Topic:   defaultEventStreamTopic,
		},
	}
}
