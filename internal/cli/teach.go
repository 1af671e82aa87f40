package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"tekbot/internal/domain"
)

var (
	teachQuestion string
	teachAnswer   string
)

var teachCmd = &cobra.Command{
	Use:   "teach",
	Short: "Add one knowledge entry",
	Long: `Add a single question/answer pair to the knowledge base. The entry is
embedded immediately so the next retrieval needs no backfill.

Example:
  tekbot teach -q "Rejeição 539: CNPJ inválido" -a "Verifique o cadastro do emitente"`,
	RunE: runTeach,
}

func init() {
	rootCmd.AddCommand(teachCmd)
	teachCmd.Flags().StringVarP(&teachQuestion, "question", "q", "", "question text (required)")
	teachCmd.Flags().StringVarP(&teachAnswer, "answer", "a", "", "answer text (required)")
	teachCmd.MarkFlagRequired("question")
	teachCmd.MarkFlagRequired("answer")
}

func runTeach(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(teachQuestion)
	answer := strings.TrimSpace(teachAnswer)
	if question == "" || answer == "" {
		return fmt.Errorf("question and answer must not be empty")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, exists, err := st.FindByQuestion(question); err != nil {
		return fmt.Errorf("store lookup failed: %w", err)
	} else if exists {
		return fmt.Errorf("an entry with this question already exists")
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	vector, err := embedder.Encode(question)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	id, err := st.InsertKnowledge(domain.KnowledgeRecord{
		Question:  question,
		Answer:    answer,
		Embedding: vector,
	})
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	fmt.Printf("Added knowledge entry %s.\n", id)
	return nil
}
