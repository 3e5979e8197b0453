package config

const (
	defaultConfigPath        = "~/.config/sift/config.toml"
	defaultDataDir           = "~/.local/share/sift"
	defaultLogDir            = "~/.local/share/sift/logs"
	defaultInboxDir          = "~/.local/share/sift/inbox"
	defaultAPIBind           = "127.0.0.1:7488"
	defaultLLMProvider       = ProviderOpenRouter
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel   = "google/gemini-2.5-flash"
	defaultGeminiModel       = "gemini-2.5-flash"
	defaultLLMReferer        = "https://github.com/sift-research/sift"
	defaultLLMTitle          = "Sift Interview Analysis"
	defaultLLMTimeoutSeconds = 60
	defaultLLMRetryAttempts  = 1
	defaultBreakerThreshold  = 5
	defaultBreakerResetSecs  = 30
	defaultMaxProblemAreas   = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Supported model providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			InboxDir: defaultInboxDir,
			APIBind:  defaultAPIBind,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Breaker: Breaker{
			FailureThreshold: defaultBreakerThreshold,
			ResetSeconds:     defaultBreakerResetSecs,
		},
		Analysis: Analysis{
			MaxProblemAreas: defaultMaxProblemAreas,
			PersonaEnabled:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
