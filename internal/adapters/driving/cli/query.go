package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docseek/internal/adapters/driven/generation/extractive"
	"github.com/custodia-labs/docseek/internal/core/domain"
)

// snippetLength caps the excerpt printed under each result.
const snippetLength = 160

var (
	queryTopK int
	queryMode string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Search the indexed documentation",
	Long: `Returns the chunks most relevant to the question.
Modes: semantic (vector similarity), keyword (BM25) or hybrid, which
fuses both lists.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documentation",
	Long:  `Retrieves the most relevant chunks and prints an answer with its sources.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	for _, cmd := range []*cobra.Command{queryCmd, askCmd} {
		cmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to return (0 = configured default)")
		cmd.Flags().StringVarP(&queryMode, "mode", "m", "", "retrieval mode: semantic, keyword or hybrid")
		cmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
		rootCmd.AddCommand(cmd)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	results, err := a.Retrieval.Answer(cmd.Context(), strings.Join(args, " "), queryTopK, domain.SearchMode(queryMode))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, results)
	}
	outputResults(cmd, results)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	answer, err := a.Retrieval.Ask(cmd.Context(), strings.Join(args, " "), queryTopK, domain.SearchMode(queryMode))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, answer)
	}

	cmd.Println(strings.TrimRight(answer.Text, "\n"))
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, rc := range answer.Sources {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, extractive.SourceLabel(rc.Chunk), rc.Score)
		}
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResults(cmd *cobra.Command, results []domain.RetrievedChunk) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, rc := range results {
		// Format: [N] source (score, mode)
		cmd.Printf("  [%d] %s (%.2f, %s)\n", i+1, extractive.SourceLabel(rc.Chunk), rc.Score, rc.Source)
		if s := snippet(rc.Chunk.Content); s != "" {
			cmd.Printf("      %s\n", s)
		}
		cmd.Println()
	}
}

func snippet(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
