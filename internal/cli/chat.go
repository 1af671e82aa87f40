package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"tekbot/internal/domain"
)

var chatNoRestore bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation",
	Long: `Start an interactive conversation. Each line is answered through the
full pipeline; the session is persisted on exit.

Commands inside the chat:
  /nova   save the current session and start a new one
  /sair   save and exit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatNoRestore, "new", false, "start a fresh session instead of resuming a recent one")
}

func runChat(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(!chatNoRestore)
	if err != nil {
		return err
	}
	defer p.Close()

	// Persist the session when the process is interrupted mid-chat.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		p.Close()
		os.Exit(0)
	}()

	fmt.Printf("tekbot (sessão %s). Digite sua pergunta, /nova ou /sair.\n\n", p.convo.SessionID())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/sair":
			return nil
		case "/nova":
			p.convo.Reset()
			fmt.Printf("Nova sessão: %s\n\n", p.convo.SessionID())
			continue
		}

		ans := p.assistant.Answer(line)
		fmt.Println(ans.Text)
		if ans.Source == domain.SourceCached {
			fmt.Println("(resposta direta da base de conhecimento)")
		}
		fmt.Println()
	}

	return scanner.Err()
}
