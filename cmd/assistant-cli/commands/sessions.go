package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bigdipper/sales-assistant/cmd/assistant-cli/ui"
	"github.com/bigdipper/sales-assistant/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persisted conversation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions with their turn counts",
	RunE:  runSessionsList,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge [session-id]",
	Short: "Delete a persisted session and its transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsPurge,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// openTurnStore opens the configured transcript store, failing when
// persistence is disabled.
func openTurnStore() (*session.TurnStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Driver != "sqlite" {
		return nil, nil, fmt.Errorf("transcript store is disabled (store.driver=%s)", cfg.Store.Driver)
	}

	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	store := session.NewTurnStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate store: %w", err)
	}
	return store, func() { db.Close() }, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ui.InitUI(noColor, verbose)

	store, cleanup, err := openTurnStore()
	if err != nil {
		ui.Error("%v", err)
		return err
	}
	defer cleanup()

	infos, err := store.ListSessions(context.Background())
	if err != nil {
		ui.Error("%v", err)
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		ui.Info("No hay sesiones guardadas.")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.ID,
			info.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(info.TurnCount),
		})
	}
	ui.Table([]string{"Sesión", "Creada", "Turnos"}, rows)
	return nil
}

func runSessionsPurge(cmd *cobra.Command, args []string) error {
	ui.InitUI(noColor, verbose)

	store, cleanup, err := openTurnStore()
	if err != nil {
		ui.Error("%v", err)
		return err
	}
	defer cleanup()

	if err := store.DeleteSession(args[0]); err != nil {
		ui.Error("%v", err)
		return err
	}

	ui.Success("Sesión %s eliminada.", args[0])
	return nil
}
