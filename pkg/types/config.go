package types

import "time"

// HTTPConfig holds shared HTTP settings used by every stage that makes network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"http_timeout" yaml:"http_timeout" mapstructure:"http_timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FeedConfig holds settings for the arXiv feed reader.
type FeedConfig struct {
	// Categories lists the arXiv category tags to harvest (e.g. "cs.CL").
	Categories []string `json:"category_list" yaml:"category_list" mapstructure:"category_list"`

	// MaxResultsPerCategory caps the number of papers fetched per category (default 100).
	MaxResultsPerCategory int `json:"max_results_per_category" yaml:"max_results_per_category" mapstructure:"max_results_per_category"`

	// PageSize is the number of entries requested per feed page (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// RequestInterval is the minimum spacing between feed requests (default 3s).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" mapstructure:"request_interval"`

	// MaxRetries is the number of retries on 429/503 responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LLMConfig holds settings for the OpenAI-compatible chat endpoint used for
// semantic matching and translation.
type LLMConfig struct {
	// Model is the chat model identifier (e.g. "qwen2.5:14b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL is the API root, e.g. "http://localhost:11434/v1".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey authenticates against the endpoint. Empty means "ollama".
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// UseForFiltering enables the semantic match stage.
	UseForFiltering bool `json:"use_llm_for_filtering" yaml:"use_llm_for_filtering" mapstructure:"use_llm_for_filtering"`

	// UseForTranslation enables abstract translation.
	UseForTranslation bool `json:"use_llm_for_translation" yaml:"use_llm_for_translation" mapstructure:"use_llm_for_translation"`

	// PaperToHuntFile is the Markdown file describing the papers to look for.
	PaperToHuntFile string `json:"paper_to_hunt_file" yaml:"paper_to_hunt_file" mapstructure:"paper_to_hunt_file"`

	// LLMRetries is the number of retries on 429/503 chat responses (default 3).
	LLMRetries int `json:"llm_max_retries" yaml:"llm_max_retries" mapstructure:"llm_max_retries"`
}

// NotifyConfig holds settings for the Lark webhook.
type NotifyConfig struct {
	// Tag labels every card sent for this configuration.
	Tag string `json:"tag" yaml:"tag" mapstructure:"tag"`

	// WebhookURL is the Lark custom-bot webhook.
	WebhookURL string `json:"webhook_url" yaml:"webhook_url" mapstructure:"webhook_url"`

	// TemplateID and TemplateVersionName select the card template.
	TemplateID          string `json:"template_id" yaml:"template_id" mapstructure:"template_id"`
	TemplateVersionName string `json:"template_version_name" yaml:"template_version_name" mapstructure:"template_version_name"`

	// BatchSize is the number of papers per card (default 10).
	BatchSize int `json:"lark_batch_size" yaml:"lark_batch_size" mapstructure:"lark_batch_size"`

	// WebhookRetries is the number of retries on 429/503 webhook responses (default 3).
	WebhookRetries int `json:"webhook_max_retries" yaml:"webhook_max_retries" mapstructure:"webhook_max_retries"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// Format is json or console.
	Format string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
}

// DigestConfig groups every setting of one paper-digest deployment. The
// configuration file is flat: all embedded structs squash into the top level.
type DigestConfig struct {
	HTTPConfig    `yaml:",inline" mapstructure:",squash"`
	FeedConfig    `yaml:",inline" mapstructure:",squash"`
	LLMConfig     `yaml:",inline" mapstructure:",squash"`
	NotifyConfig  `yaml:",inline" mapstructure:",squash"`
	LoggingConfig `yaml:",inline" mapstructure:",squash"`

	// Keywords lists keyword expressions; empty disables keyword filtering.
	Keywords []string `json:"keyword_list" yaml:"keyword_list" mapstructure:"keyword_list"`

	// PaperFile is the persisted store of reported papers (default papers.json).
	PaperFile string `json:"paper_file" yaml:"paper_file" mapstructure:"paper_file"`

	// ScheduleTime is the daily trigger time (HH:MM) for periodic mode.
	ScheduleTime string `json:"schedule_time" yaml:"schedule_time" mapstructure:"schedule_time"`
}

// Defaults for unset DigestConfig fields.
const (
	DefaultMaxResultsPerCategory = 100
	DefaultPageSize              = 100
	DefaultRequestInterval       = 3 * time.Second
	DefaultFeedRetries           = 3
	DefaultCallRetries           = 3
	DefaultBatchSize             = 10
	DefaultHTTPTimeout           = 30 * time.Second
	DefaultUserAgent             = "paper-digest/0.1"
	DefaultPaperFile             = "papers.json"
	DefaultPaperToHuntFile       = "paper_to_hunt.md"
)

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *DigestConfig) ApplyDefaults() {
	if c.MaxResultsPerCategory <= 0 {
		c.MaxResultsPerCategory = DefaultMaxResultsPerCategory
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.RequestInterval <= 0 {
		c.RequestInterval = DefaultRequestInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultFeedRetries
	}
	if c.LLMRetries <= 0 {
		c.LLMRetries = DefaultCallRetries
	}
	if c.WebhookRetries <= 0 {
		c.WebhookRetries = DefaultCallRetries
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultHTTPTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.PaperFile == "" {
		c.PaperFile = DefaultPaperFile
	}
	if c.PaperToHuntFile == "" {
		c.PaperToHuntFile = DefaultPaperToHuntFile
	}
}
