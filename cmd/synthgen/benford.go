package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erp/datasynth/internal/benford"
	"github.com/erp/datasynth/internal/sink"
)

func newBenfordCmd() *cobra.Command {
	var significance float64
	cmd := &cobra.Command{
		Use:   "benford [file|pattern]...",
		Short: "Check amounts against Benford's law.",
		Long: `Benford reads one amount per line from the given files, or from ` +
			`stdin when none are given, and prints the first and second digit ` +
			`analyses as YAML. Arguments may be ** glob patterns and .lz4 files ` +
			`are decompressed. Blank lines and lines starting with # are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var amounts []decimal.Decimal
			var err error
			if len(args) == 0 {
				amounts, err = readAmounts(cmd.InOrStdin())
			} else {
				amounts, err = readAmountFiles(args)
			}
			if err != nil {
				return err
			}
			report, err := analyzeAmounts(amounts, significance)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().Float64Var(&significance, "significance", benford.DefaultSignificance, "Chi-square test level")
	return cmd
}

// benfordOutput is what the benford command prints.
type benfordOutput struct {
	Amounts               int                        `yaml:"amounts"`
	FirstDigit            *benford.Report            `yaml:"first_digit"`
	SecondDigit           *benford.SecondDigitReport `yaml:"second_digit"`
	SuspectedManipulation bool                       `yaml:"suspected_manipulation"`
}

func analyzeAmounts(amounts []decimal.Decimal, significance float64) (*benfordOutput, error) {
	opt := benford.WithSignificance(significance)
	first, err := benford.Analyze(amounts, opt)
	if err != nil {
		return nil, err
	}
	second, err := benford.AnalyzeSecondDigit(amounts, opt)
	if err != nil {
		return nil, err
	}
	return &benfordOutput{
		Amounts:               len(amounts),
		FirstDigit:            first,
		SecondDigit:           second,
		SuspectedManipulation: first.SuspectedManipulation(),
	}, nil
}

func readAmountFiles(patterns []string) ([]decimal.Decimal, error) {
	files, err := sink.Expand(patterns...)
	if err != nil {
		return nil, err
	}
	var amounts []decimal.Decimal
	for _, path := range files {
		in, err := sink.Open(path)
		if err != nil {
			return nil, err
		}
		batch, err := readAmounts(in)
		in.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		amounts = append(amounts, batch...)
	}
	return amounts, nil
}

func readAmounts(r io.Reader) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amounts = append(amounts, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return amounts, nil
}
