package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ppiankov/brdsynth/internal/model"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	if err := registerDefaults(v); err != nil {
		t.Fatalf("registerDefaults() error = %v", err)
	}
	bindEnv(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	def := model.DefaultConfig()
	if cfg.Noise.Threshold != def.Noise.Threshold {
		t.Errorf("noise threshold = %v, want %v", cfg.Noise.Threshold, def.Noise.Threshold)
	}
	if len(cfg.Conflict.Topics) != len(def.Conflict.Topics) {
		t.Errorf("topics = %d, want %d", len(cfg.Conflict.Topics), len(def.Conflict.Topics))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BRDSYNTH_NOISE_THRESHOLD", "0.55")
	t.Setenv("BRDSYNTH_LLM_PROVIDER", "groq")
	t.Setenv("BRDSYNTH_LLM_API_KEY", "secret")

	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Noise.Threshold != 0.55 {
		t.Errorf("noise threshold = %v, want 0.55", cfg.Noise.Threshold)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("provider = %q, want groq", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Errorf("api key not read from environment")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "merge:\n  similarity_threshold: 0.9\nconcurrency:\n  workers: 2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	v := newTestViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Merge.SimilarityThreshold != 0.9 {
		t.Errorf("similarity threshold = %v, want 0.9", cfg.Merge.SimilarityThreshold)
	}
	if cfg.Concurrency.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Concurrency.Workers)
	}
	// Untouched keys keep their defaults
	if cfg.Noise.Threshold != model.DefaultConfig().Noise.Threshold {
		t.Errorf("noise threshold = %v, want default", cfg.Noise.Threshold)
	}
}

func TestApplyFlags(t *testing.T) {
	var opts synthFlags
	flags := pflag.NewFlagSet("synth", pflag.ContinueOnError)
	flags.IntVar(&opts.concurrency, "concurrency", 0, "")
	flags.Float64Var(&opts.threshold, "threshold", 0, "")
	flags.StringVar(&opts.project, "project", "", "")
	flags.StringVar(&opts.llmProvider, "llm-provider", "", "")
	flags.StringVar(&opts.llmModel, "llm-model", "", "")
	flags.BoolVar(&opts.noCache, "no-cache", false, "")
	flags.BoolVar(&opts.noFooter, "no-footer", false, "")
	if err := flags.Parse([]string{"--concurrency", "3", "--project", "Apollo", "--llm-provider", "rules", "--no-cache", "--no-footer"}); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.LLM.Model = "gpt-4o-mini"
	applyFlags(flags, opts, &cfg)

	if cfg.Concurrency.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Concurrency.Workers)
	}
	if cfg.Noise.Threshold != model.DefaultConfig().Noise.Threshold {
		t.Errorf("unset --threshold changed noise threshold to %v", cfg.Noise.Threshold)
	}
	if cfg.Noise.ProjectFilter != "Apollo" {
		t.Errorf("project filter = %q, want Apollo", cfg.Noise.ProjectFilter)
	}
	if cfg.LLM.Provider != "rules" {
		t.Errorf("provider = %q, want rules", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unset --llm-model changed model to %q", cfg.LLM.Model)
	}
	if cfg.Cache.Enabled || cfg.Output.IncludeFooter {
		t.Errorf("--no-cache/--no-footer not applied: %+v %+v", cfg.Cache, cfg.Output)
	}
}

func TestSynthFlags_Sources(t *testing.T) {
	opts := synthFlags{
		emails:   []string{"a.json", "b.json"},
		meetings: []string{"m.json"},
		chats:    []string{"c.json"},
		inputs:   []string{"mixed.json"},
	}
	got := opts.sources()
	want := []struct {
		path string
		ch   model.Channel
	}{
		{"a.json", model.ChannelEmail},
		{"b.json", model.ChannelEmail},
		{"m.json", model.ChannelMeeting},
		{"c.json", model.ChannelChat},
		{"mixed.json", model.ChannelUnknown},
	}
	if len(got) != len(want) {
		t.Fatalf("sources = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Path != w.path || got[i].Channel != w.ch {
			t.Errorf("source %d = %+v, want %s/%s", i, got[i], w.path, w.ch)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"# brdsynth configuration file", "noise:", "similarity_threshold:", "GROQ_API_KEY"} {
		if !strings.Contains(text, want) {
			t.Errorf("config file missing %q", want)
		}
	}
	if strings.Contains(text, "api_key:") {
		t.Error("config file must not contain an api key field")
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config file already exists")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(out.String(), "brdsynth v") {
		t.Errorf("version output = %q", out.String())
	}
}
