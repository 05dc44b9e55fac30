package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ppiankov/brdsynth/internal/cache"
	"github.com/ppiankov/brdsynth/internal/ingest"
	"github.com/ppiankov/brdsynth/internal/llm"
	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/pipeline"
)

type synthFlags struct {
	emails   []string
	meetings []string
	chats    []string
	inputs   []string

	outJSON string
	outMD   string
	outHTML string

	timeout     time.Duration
	concurrency int
	threshold   float64
	project     string
	noCache     bool
	cacheDir    string
	noFooter    bool

	llmProvider string
	llmModel    string
	httpProxy   string
	httpsProxy  string
}

var synthOpts synthFlags

// synthCmd represents the synth command
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize a requirements document from communication exports",
	Long: `Synth reads email, meeting and chat exports (JSON arrays of records) and:
- Filters social and logistics noise
- Extracts requirements, decisions, milestones and stakeholders
- Merges duplicates across channels with full traceability
- Detects conflicts between channels and scores project health
- Writes the document as JSON, Markdown and HTML

Example:
  brdsynth synth --email mail.json --meeting transcripts.json --chat slack.json
  brdsynth synth --input export.json --json brd.json --md brd.md --html brd.html
  brdsynth synth --email mail.json --llm-provider openai --llm-model gpt-4o-mini
  brdsynth synth --input export.json --project "customer portal"`,
	Args: cobra.NoArgs,
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)
	f := synthCmd.Flags()

	// Inputs
	f.StringSliceVar(&synthOpts.emails, "email", nil, "email export (repeatable)")
	f.StringSliceVar(&synthOpts.meetings, "meeting", nil, "meeting transcript export (repeatable)")
	f.StringSliceVar(&synthOpts.chats, "chat", nil, "chat log export (repeatable)")
	f.StringSliceVar(&synthOpts.inputs, "input", nil, "mixed-channel export; channel read per record (repeatable)")

	// Outputs
	f.StringVar(&synthOpts.outJSON, "json", "brd.json", "output JSON path")
	f.StringVar(&synthOpts.outMD, "md", "", "output Markdown path (optional)")
	f.StringVar(&synthOpts.outHTML, "html", "", "output HTML path (optional)")
	f.BoolVar(&synthOpts.noFooter, "no-footer", false, "disable footer in Markdown and HTML reports")

	// Run
	f.DurationVar(&synthOpts.timeout, "timeout", 10*time.Minute, "overall run timeout; records not dispatched in time are audited")
	f.IntVar(&synthOpts.concurrency, "concurrency", 0, "number of extraction workers (default: config or CPU count)")
	f.Float64Var(&synthOpts.threshold, "threshold", 0, "noise threshold in [0,1] (default: config)")
	f.StringVar(&synthOpts.project, "project", "", "keep only records that mention this project keyword")
	f.BoolVar(&synthOpts.noCache, "no-cache", false, "disable the extraction payload cache")
	f.StringVar(&synthOpts.cacheDir, "cache-dir", "", "persist cached payloads under this directory")

	// LLM
	f.StringVar(&synthOpts.llmProvider, "llm-provider", "", "extraction provider (openai, anthropic, ollama, groq, rules)")
	f.StringVar(&synthOpts.llmModel, "llm-model", "", "LLM model name")
	f.StringVar(&synthOpts.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.StringVar(&synthOpts.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyFlags overlays the flags the user actually set onto cfg
func applyFlags(flags *pflag.FlagSet, opts synthFlags, cfg *model.Config) {
	if flags.Changed("concurrency") {
		cfg.Concurrency.Workers = opts.concurrency
	}
	if flags.Changed("threshold") {
		cfg.Noise.Threshold = opts.threshold
	}
	if flags.Changed("project") {
		cfg.Noise.ProjectFilter = opts.project
	}
	if opts.noCache {
		cfg.Cache.Enabled = false
	}
	if opts.cacheDir != "" {
		cfg.Cache.DiskDir = opts.cacheDir
	}
	if opts.noFooter {
		cfg.Output.IncludeFooter = false
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = opts.llmProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = opts.llmModel
	}
	if opts.httpProxy != "" {
		cfg.LLM.HTTPProxy = opts.httpProxy
	}
	if opts.httpsProxy != "" {
		cfg.LLM.HTTPSProxy = opts.httpsProxy
	}
}

// sources lists the input files in flag order: emails, meetings, chats,
// then mixed exports
func (opts synthFlags) sources() []ingest.Source {
	var out []ingest.Source
	add := func(paths []string, ch model.Channel) {
		for _, p := range paths {
			out = append(out, ingest.Source{Path: p, Channel: ch})
		}
	}
	add(opts.emails, model.ChannelEmail)
	add(opts.meetings, model.ChannelMeeting)
	add(opts.chats, model.ChannelChat)
	add(opts.inputs, model.ChannelUnknown)
	return out
}

func runSynth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), synthOpts, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sources := synthOpts.sources()
	if len(sources) == 0 {
		return errors.New("no input: pass at least one of --email, --meeting, --chat or --input")
	}

	showProgress := cfg.Output.Verbose
	logger := newLogger(showProgress)

	// Ctrl-C stops dispatching; records already running still finish
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, synthOpts.timeout)
	defer cancel()

	if showProgress {
		fmt.Fprintln(os.Stderr, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(os.Stderr, "  brdsynth")
		fmt.Fprintln(os.Stderr, "═══════════════════════════════════════════════════════════")
		fmt.Fprintf(os.Stderr, "Inputs: %d file(s)\n", len(sources))
		fmt.Fprintf(os.Stderr, "Workers: %d\n", cfg.Concurrency.Workers)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", synthOpts.timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	records, err := ingest.LoadFiles(ctx, sources)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return fmt.Errorf("configure LLM: %w", err)
	}
	if provider != nil {
		if !provider.IsAvailable(ctx) {
			fmt.Fprintf(os.Stderr, "⚠ LLM provider %s is not available; records will fall back to rule extraction\n", provider.Name())
		}
		opts = append(opts, pipeline.WithCapability(provider))
	}

	if c := cache.New(cfg.Cache); c != nil {
		opts = append(opts, pipeline.WithCache(c))
	}

	result, err := pipeline.NewPipeline(cfg, opts...).Synthesize(ctx, records)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	outputs := pipeline.Outputs{
		JSON:     synthOpts.outJSON,
		Markdown: synthOpts.outMD,
		HTML:     synthOpts.outHTML,
	}
	if err := renderer.RenderReport(os.Stdout, result, outputs, showProgress); err != nil {
		return err
	}
	return nil
}
