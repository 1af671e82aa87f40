package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted conversation sessions",
	RunE:  runSessions,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(statsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions persisted.")
		return nil
	}

	for _, s := range sessions {
		fmt.Printf("%s  %s  %d turns\n", s.ID, s.UpdatedAt.Format("2006-01-02 15:04:05"), len(s.Turns))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	knowledge, interactions, sessions, err := st.Counts()
	if err != nil {
		return fmt.Errorf("failed to read counts: %w", err)
	}

	fmt.Printf("Knowledge entries: %d\n", knowledge)
	fmt.Printf("Interactions:      %d\n", interactions)
	fmt.Printf("Sessions:          %d\n", sessions)
	return nil
}
