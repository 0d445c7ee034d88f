package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/patterns"
	"call-compliance-analyzer/internal/service/analysis"
	"call-compliance-analyzer/internal/service/classify/mock"
	"call-compliance-analyzer/internal/transcript"
)

type analyzeOptions struct {
	analyses     []string
	approach     string
	patternsFile string
	callId       string
	output       string
}

func newAnalyzeCommand() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <transcript.json>...",
		Short: "Analyze one or more transcript files",
		Long: `Analyze transcript files and print the result as indented JSON.

With one file the output is that call's report; the call ID defaults to the
file name without extension. With several files the output is a batch summary
grouping call IDs by outcome.

--approach classifier routes the profanity and privacy judgments through the
classifier interface. The built-in classifier works offline from the same
pattern taxonomy.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.analyses, "analysis", "a", nil, "analyses to run: profanity, privacy, metrics (default all)")
	cmd.Flags().StringVar(&opts.approach, "approach", string(analysis.ApproachPattern), "how judgments are made: pattern or classifier")
	cmd.Flags().StringVarP(&opts.patternsFile, "patterns", "p", "", "YAML pattern taxonomy overriding the built-in one")
	cmd.Flags().StringVar(&opts.callId, "call-id", "", "call ID for a single transcript (default: file name)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON to this file instead of stdout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions, paths []string) error {
	if opts.callId != "" && len(paths) > 1 {
		return fmt.Errorf("--call-id applies to a single transcript, got %d files", len(paths))
	}
	kinds, err := analysis.ParseKinds(opts.analyses)
	if err != nil {
		return err
	}
	approach, err := analysis.ParseApproach(opts.approach)
	if err != nil {
		return err
	}
	set, err := patterns.LoadFile(opts.patternsFile)
	if err != nil {
		return err
	}
	analyzer := analysis.New(set, analysis.WithClassifier(mock.NewOffline(set)))

	calls := make(map[string]models.Transcript, len(paths))
	for _, path := range paths {
		t, err := transcript.Load(path)
		if err != nil {
			return err
		}
		id := transcript.CallIDFromPath(path)
		if opts.callId != "" {
			id = opts.callId
		}
		if _, dup := calls[id]; dup {
			return fmt.Errorf("duplicate call ID %q from %s", id, path)
		}
		calls[id] = t
	}

	var result any
	if len(paths) == 1 {
		for id, t := range calls {
			if result, err = analyzer.Analyze(cmd.Context(), id, t, approach, kinds...); err != nil {
				return err
			}
		}
	} else {
		summary, err := analyzer.AnalyzeBatch(cmd.Context(), calls, approach, kinds...)
		if err != nil {
			return err
		}
		result = summary
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writeJSON(out, result)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
