package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/example/skin-analysis/internal/analysis"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "skinctl",
		Short:         "Inspect skin classifier responses offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newNormalizeCommand())
	cmd.AddCommand(newToneCommand())
	return cmd
}

type normalizeOutput struct {
	Shape      string                    `json:"shape"`
	Result     analysis.AnalysisResult   `json:"result"`
	Conditions []analysis.ConditionScore `json:"detectedConditions"`
	Report     analysis.Report           `json:"report"`
}

func newNormalizeCommand() *cobra.Command {
	thresholds := analysis.DefaultThresholds()
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Rank and describe the findings in a condition classifier response",
		Long:  "Reads a classifier response from file, or stdin when file is \"-\" or omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := thresholds.Validate(); err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			result := analysis.Analyze(raw, thresholds)
			assembler := analysis.NewAssembler(analysis.NewVocabulary())
			return writeJSON(cmd.OutOrStdout(), normalizeOutput{
				Shape:      analysis.DetectShape(raw),
				Result:     result,
				Conditions: assembler.DetectedConditions(result),
				Report:     assembler.Assemble(result),
			})
		},
	}
	cmd.Flags().Float64Var(&thresholds.Global, "global-floor", thresholds.Global, "minimum confidence for any finding")
	cmd.Flags().Float64Var(&thresholds.Secondary, "secondary-floor", thresholds.Secondary, "minimum confidence for secondary findings")
	return cmd
}

func newToneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tone [file]",
		Short: "Classify the skin tone in a tone classifier response",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), analysis.NewToneTable().AnalyzeTone(raw))
		},
	}
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}
