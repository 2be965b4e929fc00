package graphrag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/datasets"
)

var askCmd = &cobra.Command{
	Use:   "ask <chain> <question>",
	Short: "Answer a question with one chain",
	Long: `Answer a question with one of the registered chains and print the answer,
followed by the statements that were run.

Customer-scoped chains (hm-prefilter, hm-postfilter) need --customer-id.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the registered chains",
	Args:  cobra.NoArgs,
	RunE:  runChains,
}

var (
	askCustomerID   string
	askInstructions string
	askSearchText   string
	askRetrieveOnly bool
	askJSON         bool
	askTimeout      time.Duration
)

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chainsCmd)

	askCmd.Flags().StringVar(&askCustomerID, "customer-id", "", "Customer id for customer-scoped chains")
	askCmd.Flags().StringVar(&askInstructions, "instructions", "", "Replace the chain's instructions")
	askCmd.Flags().StringVar(&askSearchText, "search-text", "", "Search with this text instead of the question")
	askCmd.Flags().BoolVar(&askRetrieveOnly, "retrieve-only", false, "Only run the retrieval step")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full answer as JSON")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "Timeout for the whole invocation")
}

// retriever is implemented by chains that can run their search step alone.
type retriever interface {
	Retrieve(ctx context.Context, req chain.Request) (*chain.Answer, error)
}

func runAsk(cmd *cobra.Command, args []string) error {
	_, client, _, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	name := args[0]
	ch, ok := client.Chain(name)
	if !ok {
		return fmt.Errorf("unknown chain %q, available: %s", name, strings.Join(client.ChainNames(), ", "))
	}

	req := chain.Request{
		Prompt:       strings.Join(args[1:], " "),
		SearchText:   askSearchText,
		Instructions: askInstructions,
	}
	if askCustomerID != "" {
		req.Params = map[string]any{datasets.ParamCustomerID: askCustomerID}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	var answer *chain.Answer
	if askRetrieveOnly {
		r, ok := ch.(retriever)
		if !ok {
			return fmt.Errorf("chain %q has no separate retrieval step", name)
		}
		answer, err = r.Retrieve(ctx, req)
	} else {
		answer, err = ch.Invoke(ctx, req)
	}
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}

func printAnswer(w io.Writer, answer *chain.Answer) {
	heading := color.New(color.FgCyan, color.Bold)

	if answer.Answer != "" {
		heading.Fprintln(w, "Answer")
		fmt.Fprintln(w, strings.TrimSpace(answer.Answer))
	}
	if answer.Context.Len() > 0 {
		heading.Fprintf(w, "\nContext (%d records)\n", answer.Context.Len())
		fmt.Fprintln(w, answer.Context.Document)
	}
	for _, warning := range answer.Warnings {
		color.New(color.FgYellow).Fprintln(w, "warning:", strings.TrimSpace(warning))
	}
	for _, q := range answer.Queries {
		heading.Fprintf(w, "\nQuery (%s)\n", q.Strategy)
		fmt.Fprintln(w, q.Text)
	}
}

func runChains(cmd *cobra.Command, args []string) error {
	_, client, _, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	for _, name := range client.ChainNames() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
