package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tansive/restspec/internal/suite"
)

var suiteFiles []string

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -f FILE [-f FILE...]",
		Short: "Run YAML test suites",
		Long: `Run one or more YAML test suites. Cases run in order; values extracted by a case
can be referenced by later cases as ${name}. The command fails if any case fails.

Examples:
  # Run a suite against the base URL in restspec.toml
  restspec run -f workspaces.yaml

  # Run two suites and print the results as JSON
  restspec run -f users.yaml -f echo.yaml -j`,
		Args: cobra.NoArgs,
		RunE: runSuites,
	}
	cmd.Flags().StringArrayVarP(&suiteFiles, "file", "f", nil, "Suite file (repeatable)")
	cmd.MarkFlagRequired("file")
	return cmd
}

type caseOutput struct {
	Name       string   `json:"name"`
	Method     string   `json:"method"`
	URL        string   `json:"url,omitempty"`
	Status     int      `json:"status,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Passed     bool     `json:"passed"`
	Error      string   `json:"error,omitempty"`
	Failures   []string `json:"failures,omitempty"`
}

type suiteOutput struct {
	Suite  string       `json:"suite"`
	File   string       `json:"file"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []caseOutput `json:"cases"`
}

func runSuites(cmd *cobra.Command, args []string) error {
	sink, err := cfg.LogSink()
	if err != nil {
		return err
	}
	defer sink.Close()
	runner := suite.NewRunner(cfg.BaseSpecification(sink), nil)

	var outputs []suiteOutput
	failed := false
	for _, file := range suiteFiles {
		s, err := suite.Load(file)
		if err != nil {
			return err
		}
		report := runner.Run(cmd.Context(), s)
		if report.Failed() > 0 {
			failed = true
		}
		out := toSuiteOutput(file, report)
		if jsonOutput {
			outputs = append(outputs, out)
			continue
		}
		printSuiteHumanReadable(cmd.OutOrStdout(), out)
	}
	if jsonOutput {
		printJSON(cmd.OutOrStdout(), outputs)
	}
	if failed {
		return ErrAlreadyHandled
	}
	return nil
}

func toSuiteOutput(file string, report *suite.Report) suiteOutput {
	out := suiteOutput{
		Suite:  report.Suite,
		File:   file,
		Passed: report.Passed(),
		Failed: report.Failed(),
	}
	for _, res := range report.Results {
		co := caseOutput{
			Name:       res.Name,
			Method:     res.Method,
			URL:        res.URL,
			Status:     res.Status,
			DurationMs: res.Duration.Milliseconds(),
			Passed:     res.Passed(),
		}
		if res.Err != nil {
			co.Error = res.Err.Error()
		}
		for _, f := range res.Failures {
			co.Failures = append(co.Failures, f.String())
		}
		out.Cases = append(out.Cases, co)
	}
	return out
}

func printSuiteHumanReadable(w io.Writer, out suiteOutput) {
	title := out.Suite
	if title == "" {
		title = out.File
	}
	fmt.Fprintf(w, "%s:\n", cases.Title(language.English).String(title))
	for _, c := range out.Cases {
		if c.Passed {
			okLabel.Fprint(w, "  PASS ")
		} else {
			errorLabel.Fprint(w, "  FAIL ")
		}
		fmt.Fprintf(w, "%s (%s %s", c.Name, c.Method, c.URL)
		if c.Status != 0 {
			fmt.Fprintf(w, " -> %d", c.Status)
		}
		fmt.Fprintf(w, ", %dms)\n", c.DurationMs)
		if c.Error != "" {
			fmt.Fprintf(w, "       %s\n", c.Error)
		}
		for _, f := range c.Failures {
			fmt.Fprintf(w, "       %s\n", strings.ReplaceAll(f, "\n", "\n       "))
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed\n", out.Passed, out.Failed)
}
