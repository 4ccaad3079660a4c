package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-pkgz/pool"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"purchase_worker/adapter/out/mailfile"
	"purchase_worker/config"
	"purchase_worker/core/agent/llm"
	"purchase_worker/core/service/extraction"
	"purchase_worker/pkg/resilience"
)

var (
	// useLLM enables the model fallback
	useLLM bool
	// forceLLM always consults the model
	forceLLM bool
	// concurrency is the number of files parsed at once
	concurrency int
)

func init() {
	parseCmd.Flags().BoolVar(&useLLM, "llm", false, "consult the LLM for low-confidence results (needs an API key)")
	parseCmd.Flags().BoolVar(&forceLLM, "force-llm", false, "consult the LLM for every file (implies --llm)")
	parseCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "files parsed in parallel")
}

// parseCmd parses one or more email files
var parseCmd = &cobra.Command{
	Use:   "parse <file>...",
	Short: "Parse email files into structured purchase data",
	Long: `Parse email files and print one JSON result per file, in argument order.

Examples:
  # Deterministic parsing only
  mailextract parse order.eml shipping.eml

  # Fall back to the LLM when confidence is low
  ANTHROPIC_API_KEY=... mailextract parse --llm --pretty forwarded.eml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

// FileResult is one line of parse output.
type FileResult struct {
	File    string              `json:"file"`
	Outcome *extraction.Outcome `json:"outcome,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	svc, err := newCLIService(useLLM || forceLLM)
	if err != nil {
		return err
	}

	results, err := parseFiles(cmd.Context(), svc, args, extraction.ProcessOptions{ForceLLM: forceLLM}, concurrency)
	if err != nil {
		return err
	}
	if err := writeResults(cmd.OutOrStdout(), results, pretty); err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != "" {
			return errors.New("one or more files failed")
		}
	}
	return nil
}

// newCLIService builds a storage-less service. The LLM path reads the same
// environment as the server.
func newCLIService(withLLM bool) (*extraction.Service, error) {
	deps := extraction.ServiceDeps{}
	cfg := extraction.ServiceConfig{FallbackThreshold: 0.5}

	if withLLM {
		appCfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		client, err := llm.NewClientFromConfig(appCfg)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("--llm needs an API key for provider %q", appCfg.LLMProvider)
		}

		deps.Extractor = llm.NewExtractor(client, llm.WithMaxTokens(appCfg.LLMMaxTokens))
		guardCfg := resilience.DefaultGuardConfig("cli-llm")
		guardCfg.Timeout = appCfg.LLMTimeout()
		deps.Guard = resilience.NewGuard(guardCfg)

		cfg.FallbackThreshold = appCfg.LLMFallbackThreshold
		cfg.LLMEnabled = true
	}

	return extraction.NewService(deps, cfg), nil
}

// =============================================================================
// Batch parsing (go-pkgz/pool)
// =============================================================================

type parseJob struct {
	index int
	path  string
}

// parseWorker implements pool.Worker. Each job writes only its own slot.
type parseWorker struct {
	svc     *extraction.Service
	opts    extraction.ProcessOptions
	results []FileResult
}

func (w *parseWorker) Do(ctx context.Context, job parseJob) error {
	res := FileResult{File: job.path}

	email, err := mailfile.LoadFile(job.path)
	if err != nil {
		res.Error = err.Error()
		w.results[job.index] = res
		return nil
	}

	opts := w.opts
	opts.MessageID = job.path
	outcome, err := w.svc.Process(ctx, email, opts)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Outcome = outcome
	}
	w.results[job.index] = res
	return nil
}

func parseFiles(ctx context.Context, svc *extraction.Service, files []string, opts extraction.ProcessOptions, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	w := &parseWorker{svc: svc, opts: opts, results: make([]FileResult, len(files))}
	p := pool.New[parseJob](workers, w).WithContinueOnError()
	if err := p.Go(ctx); err != nil {
		return nil, err
	}
	for i, f := range files {
		p.Submit(parseJob{index: i, path: f})
	}
	if err := p.Close(ctx); err != nil {
		return nil, err
	}
	return w.results, nil
}

func writeResults(w io.Writer, results []FileResult, indent bool) error {
	if indent {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
