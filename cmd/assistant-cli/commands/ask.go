package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigdipper/sales-assistant/cmd/assistant-cli/ui"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a single question and print the grounded answer",
	Long: `One-shot question. The message should carry a product reference (model
code, catalog URL or pasted record JSON) unless --session resumes a
conversation that already has one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "resume an existing session id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ui.InitUI(noColor, verbose)
	logger := newCLILogger(cfg)

	service, cleanup, err := buildService(cfg, logger)
	if err != nil {
		ui.Error("%v", err)
		return err
	}
	defer cleanup()

	message := strings.Join(args, " ")
	reply := service.HandleMessage(context.Background(), askSessionID, message, verbose)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"sessionId":     reply.SessionID,
			"answer":        reply.Answer,
			"strategy":      reply.Strategy,
			"clarification": reply.Clarification,
			"usedMemory":    reply.UsedMemory,
			"products":      reply.Products,
			"detection":     reply.Detection,
		})
	}

	fmt.Println(reply.Answer)
	if verbose && reply.Detection != nil {
		renderDetection(reply.Detection, reply.UsedMemory, reply.Strategy)
	}
	ui.Debug("session id: %s", reply.SessionID)
	return nil
}
