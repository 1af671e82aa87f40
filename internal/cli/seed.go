package cli

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tekbot/internal/domain"
)

var seedGlob string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load knowledge entries from data files",
	Long: `Load knowledge entries into the store from XML rejection catalogs and
YAML question/answer files. Entries whose question already exists are
skipped; new entries are embedded in batches before insertion.

XML files follow the rejection-catalog format:
  <mensagens>
    <erro codigo="100">
      <descricao>...</descricao>
      <solucao><passo>...</passo></solucao>
    </erro>
  </mensagens>

YAML files hold a list of {pergunta, resposta} pairs.

Examples:
  tekbot seed --glob "data/**/*.xml"
  tekbot seed --glob "knowledge/**/*.{xml,yaml,yml}"`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedGlob, "glob", "data/**/*.{xml,yaml,yml}", "glob pattern for seed files")
}

type seedEntry struct {
	Question string
	Answer   string
}

type xmlCatalog struct {
	Erros []xmlErro `xml:"erro"`
}

type xmlErro struct {
	Codigo    string   `xml:"codigo,attr"`
	Descricao string   `xml:"descricao"`
	Passos    []string `xml:"solucao>passo"`
}

type yamlEntry struct {
	Pergunta string `yaml:"pergunta"`
	Resposta string `yaml:"resposta"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	pattern := seedGlob
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(rootDir, pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no seed files match %s", seedGlob)
	}

	var entries []seedEntry
	for _, path := range matches {
		parsed, err := parseSeedFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		entries = append(entries, parsed...)
	}
	if len(entries) == 0 {
		fmt.Println("No entries found in seed files.")
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	// Skip entries already present so reseeding is idempotent.
	var fresh []seedEntry
	skipped := 0
	for _, e := range entries {
		_, exists, err := st.FindByQuestion(e.Question)
		if err != nil {
			return fmt.Errorf("store lookup failed: %w", err)
		}
		if exists {
			skipped++
			continue
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		fmt.Printf("Nothing to do: all %d entries already present.\n", len(entries))
		return nil
	}

	bar := progressbar.NewOptions(len(fresh),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Seeding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	batchSize := cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	inserted := 0
	for i := 0; i < len(fresh); i += batchSize {
		end := i + batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[i:end]

		texts := make([]string, len(batch))
		for j, e := range batch {
			texts[j] = e.Question
		}
		vectors, err := embedder.EncodeBatch(texts)
		if err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}

		for j, e := range batch {
			var vector []float32
			if j < len(vectors) {
				vector = vectors[j]
			}
			_, err := st.InsertKnowledge(domain.KnowledgeRecord{
				Question:  e.Question,
				Answer:    e.Answer,
				Embedding: vector,
			})
			if err != nil {
				return fmt.Errorf("failed to insert %q: %w", e.Question, err)
			}
			inserted++
			bar.Add(1)
		}
	}

	fmt.Printf("Inserted %d entries (%d already present) from %d files.\n", inserted, skipped, len(matches))
	return nil
}

func parseSeedFile(path string) ([]seedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return parseXMLCatalog(data)
	case ".yaml", ".yml":
		return parseYAMLEntries(data)
	default:
		return nil, fmt.Errorf("unsupported seed file type: %s", path)
	}
}

// parseXMLCatalog renders each rejection error as one knowledge entry:
// the question names the rejection, the answer lists the solution steps.
func parseXMLCatalog(data []byte) ([]seedEntry, error) {
	var catalog xmlCatalog
	if err := xml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}

	var entries []seedEntry
	for _, erro := range catalog.Erros {
		descricao := strings.TrimSpace(erro.Descricao)
		if descricao == "" {
			continue
		}
		passos := make([]string, 0, len(erro.Passos))
		for _, p := range erro.Passos {
			if p = strings.TrimSpace(p); p != "" {
				passos = append(passos, p)
			}
		}
		entries = append(entries, seedEntry{
			Question: fmt.Sprintf("Rejeição %s: %s", erro.Codigo, descricao),
			Answer:   "Soluções:\n" + strings.Join(passos, "\n"),
		})
	}
	return entries, nil
}

func parseYAMLEntries(data []byte) ([]seedEntry, error) {
	var raw []yamlEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var entries []seedEntry
	for _, e := range raw {
		question := strings.TrimSpace(e.Pergunta)
		answer := strings.TrimSpace(e.Resposta)
		if question == "" || answer == "" {
			continue
		}
		entries = append(entries, seedEntry{Question: question, Answer: answer})
	}
	return entries, nil
}
