package model

import (
	"fmt"
	"runtime"
)

// Config is the immutable configuration of one synthesis run.
// Components receive their section by value at construction.
type Config struct {
	Noise       NoiseConfig       `yaml:"noise" mapstructure:"noise"`
	Channel     ChannelConfig     `yaml:"channel" mapstructure:"channel"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Merge       MergeConfig       `yaml:"merge" mapstructure:"merge"`
	Conflict    ConflictConfig    `yaml:"conflict" mapstructure:"conflict"`
	Stakeholder StakeholderConfig `yaml:"stakeholder" mapstructure:"stakeholder"`
	Health      HealthConfig      `yaml:"health" mapstructure:"health"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// NoiseConfig configures the noise filter
type NoiseConfig struct {
	Threshold         float64  `yaml:"threshold" mapstructure:"threshold"`                 // is_noise when score >= threshold
	KeywordWeight     float64  `yaml:"keyword_weight" mapstructure:"keyword_weight"`       // Weight of the term-presence signal
	SimilarityWeight  float64  `yaml:"similarity_weight" mapstructure:"similarity_weight"` // Weight of the centroid signal
	MinTokens         int      `yaml:"min_tokens" mapstructure:"min_tokens"`               // Shorter records are pure noise
	NoiseKeywords     []string `yaml:"noise_keywords" mapstructure:"noise_keywords"`
	RelevanceKeywords []string `yaml:"relevance_keywords" mapstructure:"relevance_keywords"`
	RelevanceCorpus   []string `yaml:"relevance_corpus" mapstructure:"relevance_corpus"` // Historical relevance-bearing text for the centroid
	ProjectFilter     string   `yaml:"project_filter" mapstructure:"project_filter"`     // When set, records not mentioning it are excluded
}

// ChannelConfig configures the channel classifier
type ChannelConfig struct {
	MinScore      float64 `yaml:"min_score" mapstructure:"min_score"`           // Below this the channel is unknown
	TrustDeclared bool    `yaml:"trust_declared" mapstructure:"trust_declared"` // Keep loader-declared channels
}

// ExtractionConfig configures the extraction stage
type ExtractionConfig struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"` // Per capability call
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// MergeConfig configures deduplication
type MergeConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// TopicConfig names a topic group and the anchor terms that select it
type TopicConfig struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Anchors []string `yaml:"anchors" mapstructure:"anchors"`
}

// ConflictConfig configures conflict detection
type ConflictConfig struct {
	DeadlineToleranceDays int           `yaml:"deadline_tolerance_days" mapstructure:"deadline_tolerance_days"`
	PolarityThreshold     float64       `yaml:"polarity_threshold" mapstructure:"polarity_threshold"`   // HIGH when polarity gap exceeds this
	AmbiguityThreshold    float64       `yaml:"ambiguity_threshold" mapstructure:"ambiguity_threshold"` // LOW when gap exceeds this only
	ReferenceMinShared    int           `yaml:"reference_min_shared" mapstructure:"reference_min_shared"`
	ContradictionMarkers  []string      `yaml:"contradiction_markers" mapstructure:"contradiction_markers"`
	Topics                []TopicConfig `yaml:"topics" mapstructure:"topics"`
}

// LevelConfig maps a stakeholder role to a hierarchy level
type LevelConfig struct {
	Role  StakeholderRole `yaml:"role" mapstructure:"role"`
	Level string          `yaml:"level" mapstructure:"level"`
}

// StakeholderConfig configures influence aggregation
type StakeholderConfig struct {
	RecipientWeight   float64       `yaml:"recipient_weight" mapstructure:"recipient_weight"` // Interaction units per recipient
	InteractionWeight float64       `yaml:"interaction_weight" mapstructure:"interaction_weight"`
	DecisionWeight    float64       `yaml:"decision_weight" mapstructure:"decision_weight"`
	ChannelWeight     float64       `yaml:"channel_weight" mapstructure:"channel_weight"`
	Levels            []LevelConfig `yaml:"levels" mapstructure:"levels"`
	DefaultLevel      string        `yaml:"default_level" mapstructure:"default_level"`
}

// HealthConfig holds the per-severity penalties
type HealthConfig struct {
	Critical int `yaml:"critical" mapstructure:"critical"`
	High     int `yaml:"high" mapstructure:"high"`
	Medium   int `yaml:"medium" mapstructure:"medium"`
	Low      int `yaml:"low" mapstructure:"low"`
}

// Penalty returns the penalty for a severity
func (h HealthConfig) Penalty(sev Severity) int {
	switch sev {
	case SeverityCritical:
		return h.Critical
	case SeverityHigh:
		return h.High
	case SeverityMedium:
		return h.Medium
	case SeverityLow:
		return h.Low
	default:
		return 0
	}
}

// LLMConfig selects and configures the extraction capability
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, groq, "" (rules only)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the capability payload cache
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTLMinutes int    `yaml:"memory_ttl_minutes" mapstructure:"memory_ttl_minutes"`
	DiskDir          string `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"` // Empty keeps the cache in memory only
	DiskTTLHours     int    `yaml:"disk_ttl_hours" mapstructure:"disk_ttl_hours"`
}

// ConcurrencyConfig sizes the extraction worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return Config{
		Noise: NoiseConfig{
			Threshold:         0.7,
			KeywordWeight:     0.7,
			SimilarityWeight:  0.3,
			MinTokens:         4,
			NoiseKeywords:     DefaultNoiseKeywords(),
			RelevanceKeywords: DefaultRelevanceKeywords(),
			RelevanceCorpus:   DefaultRelevanceCorpus(),
		},
		Channel: ChannelConfig{
			MinScore:      1,
			TrustDeclared: true,
		},
		Extraction: ExtractionConfig{
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Merge: MergeConfig{
			SimilarityThreshold: 0.8,
		},
		Conflict: ConflictConfig{
			DeadlineToleranceDays: 1,
			PolarityThreshold:     1.0,
			AmbiguityThreshold:    0.5,
			ReferenceMinShared:    2,
			ContradictionMarkers:  []string{"disagree", "oppose", "however", "cannot", "contrary", "inconsistent", "instead of", "on the other hand"},
			Topics:                DefaultTopics(),
		},
		Stakeholder: StakeholderConfig{
			RecipientWeight:   0.5,
			InteractionWeight: 0.5,
			DecisionWeight:    0.3,
			ChannelWeight:     0.2,
			Levels: []LevelConfig{
				{Role: RoleDecisionMaker, Level: "Management"},
			},
			DefaultLevel: "Contributor",
		},
		Health: HealthConfig{
			Critical: 20,
			High:     10,
			Medium:   5,
			Low:      2,
		},
		LLM: LLMConfig{
			Provider:    "", // Rules only by default
			Timeout:     30,
			MaxTokens:   1500,
			Temperature: 0,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryTTLMinutes: 60,
			DiskTTLHours:     24 * 7,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate rejects configurations no component can work with
func (c Config) Validate() error {
	if c.Noise.Threshold < 0 || c.Noise.Threshold > 1 {
		return fmt.Errorf("noise.threshold must be within [0,1], got %v", c.Noise.Threshold)
	}
	if c.Noise.KeywordWeight < 0 || c.Noise.SimilarityWeight < 0 || c.Noise.KeywordWeight+c.Noise.SimilarityWeight == 0 {
		return fmt.Errorf("noise weights must be non-negative and not both zero")
	}
	if c.Merge.SimilarityThreshold <= 0 || c.Merge.SimilarityThreshold > 1 {
		return fmt.Errorf("merge.similarity_threshold must be within (0,1], got %v", c.Merge.SimilarityThreshold)
	}
	if c.Conflict.DeadlineToleranceDays < 0 {
		return fmt.Errorf("conflict.deadline_tolerance_days must not be negative")
	}
	if c.Conflict.AmbiguityThreshold > c.Conflict.PolarityThreshold {
		return fmt.Errorf("conflict.ambiguity_threshold (%v) exceeds polarity_threshold (%v)", c.Conflict.AmbiguityThreshold, c.Conflict.PolarityThreshold)
	}
	s := c.Stakeholder
	if s.InteractionWeight < 0 || s.DecisionWeight < 0 || s.ChannelWeight < 0 || s.InteractionWeight+s.DecisionWeight+s.ChannelWeight == 0 {
		return fmt.Errorf("stakeholder weights must be non-negative and not all zero")
	}
	if c.Health.Critical < 0 || c.Health.High < 0 || c.Health.Medium < 0 || c.Health.Low < 0 {
		return fmt.Errorf("health penalties must not be negative")
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("concurrency.workers must be positive, got %d", c.Concurrency.Workers)
	}
	return nil
}

// DefaultNoiseKeywords returns terms that mark social or administrative chatter
func DefaultNoiseKeywords() []string {
	return []string{
		"lunch", "newsletter", "happy hour", "birthday", "potluck",
		"parking", "weather", "sports", "fantasy football", "recipe",
		"vacation photos", "joke", "fw:", "fwd:", "fyi",
		"out of office", "unsubscribe", "spam", "advertisement",
		"personal", "weekend plans", "social event", "coffee",
	}
}

// DefaultRelevanceKeywords returns terms that mark requirement-bearing text
func DefaultRelevanceKeywords() []string {
	return []string{
		"requirement", "requirements", "must", "shall", "should", "need",
		"feature", "specification", "deadline", "timeline", "milestone",
		"stakeholder", "decision", "approved", "rejected", "budget",
		"priority", "scope", "deliverable", "objective", "constraint",
		"risk", "dependency", "acceptance criteria", "user story",
		"functional", "non-functional", "integration", "api", "database",
		"security", "performance", "scalability", "compliance", "action item",
		"feedback", "review", "approve", "sign-off", "phase", "sprint",
	}
}

// DefaultRelevanceCorpus returns requirement-bearing sentences used to build
// the similarity centroid when no historical corpus is configured
func DefaultRelevanceCorpus() []string {
	return []string{
		"The system must support single sign-on integration with the customer portal.",
		"The deadline for the first release milestone is the end of the sprint.",
		"Decision: the team approved the database migration plan and budget.",
		"Performance requirement: the api must respond within two seconds under load.",
		"Security and compliance review is required before sign-off on the deliverable.",
		"Stakeholders agreed the scope of phase one and the acceptance criteria.",
		"We need a notification feature for risk and dependency tracking.",
		"The requirements specification lists functional and non-functional constraints.",
	}
}

// DefaultTopics returns the anchor terms used to group entities by topic
func DefaultTopics() []TopicConfig {
	return []TopicConfig{
		{Name: "deadline", Anchors: []string{"deadline", "due", "launch", "release", "go-live", "delivery", "milestone", "cutover"}},
		{Name: "database", Anchors: []string{"database", "db", "postgres", "postgresql", "mysql", "mongodb", "oracle", "sql", "schema"}},
		{Name: "scope", Anchors: []string{"scope", "mvp", "phase", "feature", "features"}},
		{Name: "budget", Anchors: []string{"budget", "cost", "funding", "spend"}},
		{Name: "approval", Anchors: []string{"approve", "approved", "approval", "sign-off", "reject", "rejected"}},
		{Name: "technology", Anchors: []string{"api", "architecture", "framework", "platform", "cloud", "aws", "azure", "kubernetes", "microservices"}},
		{Name: "security", Anchors: []string{"security", "encryption", "sso", "authentication", "compliance"}},
		{Name: "performance", Anchors: []string{"performance", "latency", "scalability", "throughput", "uptime"}},
	}
}
