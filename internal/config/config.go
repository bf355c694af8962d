package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries all deployment settings, read from the environment
// (a .env file is loaded into it at startup when present).
type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiBaseURL string
	TextModel     string
	ImageModel    string
	RetryAttempts int

	JWTSecret   string
	RequireAuth bool

	// KeyPickerURL enables the interactive credential picker
	// capability; empty means the capability is absent and credential
	// failures surface as configuration errors.
	KeyPickerURL string

	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string

	ImageBatchSize  int
	ImageBatchDelay time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	AllowedOrigins []string

	SessionTTL time.Duration
}

// Load reads configuration from the environment with viper.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GEMINI_BASE_URL", "")
	v.SetDefault("GEMINI_TEXT_MODEL", "gemini-3-pro-preview")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview")
	v.SetDefault("RETRY_ATTEMPTS", 3)
	v.SetDefault("REQUIRE_AUTH", false)
	v.SetDefault("STORAGE_BUCKET", "founderframe-exports")
	v.SetDefault("IMAGE_BATCH_SIZE", 1)
	v.SetDefault("IMAGE_BATCH_DELAY", "1s")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("SESSION_TTL", "2h")

	cfg := &Config{
		Port:               v.GetString("PORT"),
		GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
		GeminiBaseURL:      v.GetString("GEMINI_BASE_URL"),
		TextModel:          v.GetString("GEMINI_TEXT_MODEL"),
		ImageModel:         v.GetString("GEMINI_IMAGE_MODEL"),
		RetryAttempts:      v.GetInt("RETRY_ATTEMPTS"),
		JWTSecret:          v.GetString("SUPABASE_JWT_SECRET"),
		RequireAuth:        v.GetBool("REQUIRE_AUTH"),
		KeyPickerURL:       v.GetString("KEY_PICKER_URL"),
		SupabaseURL:        v.GetString("SUPABASE_URL"),
		SupabaseServiceKey: v.GetString("SUPABASE_SERVICE_KEY"),
		StorageBucket:      v.GetString("STORAGE_BUCKET"),
		ImageBatchSize:     v.GetInt("IMAGE_BATCH_SIZE"),
		ImageBatchDelay:    v.GetDuration("IMAGE_BATCH_DELAY"),
		RateLimitRPS:       v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
		AllowedOrigins:     splitOrigins(v.GetString("ALLOWED_ORIGINS")),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
	}

	return cfg, nil
}

// splitOrigins parses a comma-separated origin list from the
// environment. Viper's slice getter would hand the raw value back as a
// single element.
func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
