package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"meetdistill/internal/config"
	"meetdistill/internal/llm"
	"meetdistill/internal/llmclient"
	"meetdistill/internal/logger"
	"meetdistill/internal/orchestrator"
	"meetdistill/internal/safeio"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/util/jsonutil"
	"meetdistill/internal/validation"
)

// flags holds every command-line override; empty values leave the loaded
// config untouched.
type flags struct {
	configPath  string
	provider    string
	model       string
	logLevel    string
	strictness  string
	compliance  string
	retryBudget int
	out         string
	dumpPrompts string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "meetdistill",
		Short:        "Turn meeting transcripts into fact-backed summaries, action points, todos and follow-up emails",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&f.provider, "provider", "", "LLM provider (openai, gemini, groq, ollama, fake)")
	pf.StringVar(&f.model, "model", "", "model id for the provider")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&f.strictness, "strictness", "", "fact confidence floor: strict, balanced or lenient")
	pf.IntVar(&f.retryBudget, "retry-budget", 0, "drafts allowed per artifact")
	pf.StringVarP(&f.out, "out", "o", "", "write JSON here instead of stdout")
	pf.StringVar(&f.dumpPrompts, "dump-prompts", "", "directory to record every prompt and raw response in")

	run := &cobra.Command{
		Use:   "run <transcript|->",
		Short: "Run the full pipeline and print the result bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, f, args[0])
		},
	}
	run.Flags().StringVar(&f.compliance, "compliance", "", "compliance policy: advisory or fail_closed")

	facts := &cobra.Command{
		Use:   "facts <transcript|->",
		Short: "Extract and validate facts only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacts(cmd, f, args[0])
		},
	}

	root.AddCommand(run, facts)
	return root
}

func (f *flags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.provider != "" {
		cfg.LLM.Provider = f.provider
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.strictness != "" {
		cfg.Validation.Strictness = validation.Strictness(f.strictness)
	}
	if f.compliance != "" {
		cfg.Compliance.Policy = orchestrator.CompliancePolicy(f.compliance)
	}
	if f.retryBudget > 0 {
		cfg.Pipeline.RetryBudget = f.retryBudget
	}
	return cfg, cfg.Validate()
}

// setup builds the logger and the wrapped client and returns a context
// carrying the logger and the optional prompt recorder.
func setup(ctx context.Context, f *flags) (context.Context, config.Config, llmclient.LLMClient, error) {
	cfg, err := f.load()
	if err != nil {
		return ctx, cfg, nil, err
	}
	log := logger.NewLogger(cfg.Logger())
	ctx = logger.ContextWithLogger(ctx, log)

	if f.dumpPrompts != "" {
		if err := os.MkdirAll(f.dumpPrompts, 0o755); err != nil {
			return ctx, cfg, nil, fmt.Errorf("create prompt dump dir: %w", err)
		}
		fsys, err := safeio.NewSafeFS(f.dumpPrompts)
		if err != nil {
			return ctx, cfg, nil, err
		}
		ctx = llm.WithPromptHook(ctx, &llm.PromptSaver{FS: fsys})
	}

	reg := llmclient.NewDefaultRegistry()
	// offline runs: every worker answers "{}"
	if err := llm.RegisterFake(reg, llm.NewFakeClient()); err != nil {
		return ctx, cfg, nil, err
	}
	cli, err := orchestrator.NewClient(ctx, reg, cfg.ClientOptions(), log)
	if err != nil {
		return ctx, cfg, nil, err
	}
	log.Debug("llm client ready", "client", cli.Name(), "provider", cfg.LLM.Provider)
	return ctx, cfg, cli, nil
}

func runPipeline(cmd *cobra.Command, f *flags, src string) error {
	transcript, err := readTranscript(cmd.InOrStdin(), src)
	if err != nil {
		return err
	}
	ctx, cfg, cli, err := setup(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer cli.Close()

	bundle, runErr := orchestrator.New(cli, cfg.Options()).Run(ctx, transcript)
	if bundle != nil {
		if err := writeJSON(cmd.OutOrStdout(), f.out, bundle); err != nil {
			return err
		}
	}
	if errors.Is(runErr, orchestrator.ErrComplianceFailed) {
		logger.FromContext(ctx).Error("compliance failed", "issues", len(bundle.Compliance.Issues))
	}
	return runErr
}

// factsOutput is what the facts command prints.
type factsOutput struct {
	RunID          string             `json:"run_id"`
	FactsExtracted int                `json:"total_facts_extracted"`
	FactsValidated int                `json:"total_facts_validated"`
	Facts          []mt.Fact          `json:"facts"`
	Discarded      []mt.DiscardRecord `json:"discard_reasons"`
	SoftFailures   []mt.SoftFailure   `json:"soft_failures"`
}

func runFacts(cmd *cobra.Command, f *flags, src string) error {
	transcript, err := readTranscript(cmd.InOrStdin(), src)
	if err != nil {
		return err
	}
	ctx, cfg, cli, err := setup(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer cli.Close()

	res, err := orchestrator.New(cli, cfg.Options()).ExtractFacts(ctx, transcript)
	if err != nil {
		return err
	}
	out := factsOutput{
		RunID:          res.RunID,
		FactsExtracted: res.Report.Extracted,
		FactsValidated: res.Report.ValidatedCount(),
		Facts:          orEmpty(res.Report.Accepted),
		Discarded:      orEmpty(res.Report.Discarded),
		SoftFailures:   orEmpty(res.Extraction.SoftFailures),
	}
	return writeJSON(cmd.OutOrStdout(), f.out, out)
}

// maxTranscriptBytes caps what a single run will read from disk.
const maxTranscriptBytes = 8 << 20

// readTranscript reads src, or stdin when src is "-".
func readTranscript(stdin io.Reader, src string) (string, error) {
	if src == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	fsys, err := safeio.NewSafeFS(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	name := filepath.Base(abs)
	info, err := fsys.SafeStat(name)
	if err != nil {
		return "", fmt.Errorf("stat transcript: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("transcript %s is a directory", src)
	}
	if info.Size() > maxTranscriptBytes {
		return "", fmt.Errorf("transcript %s is %d bytes; the limit is %d", src, info.Size(), maxTranscriptBytes)
	}
	b, err := fsys.SafeReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(b), nil
}

func writeJSON(stdout io.Writer, path string, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "" {
		_, err = stdout.Write(b)
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fsys, err := safeio.NewSafeFS(filepath.Dir(abs))
	if err != nil {
		return err
	}
	return fsys.SafeWriteFile(filepath.Base(abs), b)
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
