package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigdipper/sales-assistant/cmd/assistant-cli/ui"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive sales-assistant conversation",
	Long: `Interactive conversation loop. Paste a product URL, a model code or the
record JSON and then ask questions; the assistant keeps the recently
discussed products in memory for follow-ups.

In-chat commands: /clear resets the session, /debug toggles the
resolution panel, /quit exits.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "resume an existing session id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	ui.Section("Big Dipper Sales Assistant")
	if !cfg.GenerationEnabled() {
		ui.Warning("No generation API key configured, answers use the rule-based fallback.")
	}
	ui.Info("Pasá una URL del catálogo, un modelo o el JSON de la ficha. /quit para salir.")
	ui.Newline()

	sessionID := chatSessionID
	debug := false
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		ui.Prompt("vos")
		if !scanner.Scan() {
			ui.Newline()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			ui.Success("Hasta luego.")
			return nil
		case "/clear":
			if sessionID != "" {
				service.Sessions().Clear(sessionID)
			}
			sessionID = ""
			ui.Success("Sesión reiniciada.")
			continue
		case "/debug":
			debug = !debug
			ui.Info("Debug: %v", debug)
			continue
		}

		sp := ui.NewSpinner("Pensando...")
		sp.Start()
		reply := service.HandleMessage(context.Background(), sessionID, line, debug)
		sp.Stop()

		sessionID = reply.SessionID

		fmt.Println(reply.Answer)
		ui.Newline()

		if debug && reply.Detection != nil {
			renderDetection(reply.Detection, reply.UsedMemory, reply.Strategy)
		}
	}
}
