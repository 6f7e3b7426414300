package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"
)

// exampleQueries are offered by the interactive prompt and picked by number.
var exampleQueries = []string{
	"Mortise Latch Change of Handing Instructions",
	"How to install a 2500 series lock?",
	"500 series deadbolt hardware installation",
	"Lock offline troubleshooting",
	"WiFi connectivity issues for my lock",
	"Tell me about the 4000 series installation guide",
	"ACS Installation",
	"General FAQs about locks",
	"What is the difference between a 2000 and 2500 series lock?",
	"How do I factory reset a lock?",
	"RemoteLock Portal overview",
}

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Run one retrieval, or an interactive prompt when no question is given",
	Long: `Run a retrieval against the knowledge base and print the merged ranking.

Examples:
  kbsearch query "How do I factory reset a lock?"
  kbsearch query --json "Lock offline troubleshooting" | jq '.merged_display_results'
  kbsearch query`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full result as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := start(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return printRetrieval(cmd, a.retriever, strings.Join(args, " "), out)
	}

	fmt.Fprintln(out, "Examples:")
	for i, ex := range exampleQueries {
		fmt.Fprintf(out, "  %d. %s\n", i+1, ex)
	}
	fmt.Fprint(out, "\nType 'quit' to exit\n\n")

	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		question, ok := resolveInput(sc.Text())
		if !ok {
			break
		}
		if question == "" {
			continue
		}
		if err := printRetrieval(cmd, a.retriever, question, out); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
	fmt.Fprintln(out, "Goodbye!")
	return sc.Err() //nolint:wrapcheck // stdin read error
}

// resolveInput maps a prompt line to a question. A number picks an example.
// ok is false when the user asked to quit.
func resolveInput(line string) (question string, ok bool) {
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
		return "", false
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(exampleQueries) {
		return exampleQueries[n-1], true
	}
	return line, true
}

type retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

func printRetrieval(cmd *cobra.Command, r retriever, question string, out io.Writer) error {
	res, err := r.Retrieve(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("retrieve %q: %w", question, err)
	}

	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res) //nolint:wrapcheck // stdout write
	}

	if res.Cached {
		fmt.Fprintln(out, "(cached)")
	}
	fmt.Fprint(out, retrieval.FormatText(res.Merged))
	return nil
}
