package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"tekbot/internal/domain"
)

var (
	askQuestion string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a single question",
	Long: `Ask one question and print the answer.

The most recent session inside the recency window is resumed, so repeated
asks keep conversational continuity.

Examples:
  tekbot ask -q "erro 100"
  tekbot ask -q "como resolver a rejeição 539?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

type answerResult struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Source   string   `json:"source"`
	Basis    []string `json:"basis,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	ans := p.assistant.Answer(askQuestion)

	if askJSON {
		output, _ := json.MarshalIndent(toResult(askQuestion, ans), "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(ans.Text)
	if ans.Source == domain.SourceCached {
		fmt.Println("\n(resposta direta da base de conhecimento)")
	}
	return nil
}

func toResult(question string, ans domain.Answer) answerResult {
	res := answerResult{
		Question: question,
		Answer:   ans.Text,
		Source:   string(ans.Source),
	}
	for _, rec := range ans.Basis {
		res.Basis = append(res.Basis, rec.Question)
	}
	return res
}
