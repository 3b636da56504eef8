package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigdipper/sales-assistant/cmd/assistant-cli/ui"
	"github.com/bigdipper/sales-assistant/internal/cache"
	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/extract"
	"github.com/bigdipper/sales-assistant/internal/resolver"
	"github.com/bigdipper/sales-assistant/internal/session"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [code-or-url]",
	Short: "Resolve a product reference against the vendor catalog",
	Long: `Resolves one model code or catalog URL and prints the record plus how it
was found. Useful for checking which backend path answered.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ui.InitUI(noColor, verbose)
	logger := newCLILogger(cfg)

	backend := catalog.NewClient(catalog.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		UserAgent:      cfg.Catalog.UserAgent,
		ViewTimeout:    cfg.Catalog.ViewTimeout,
		SearchTimeout:  cfg.Catalog.SearchTimeout,
		ScrapeFallback: cfg.Catalog.ScrapeFallback,
	}, logger)

	shared := cache.NewMemoryClient(cfg.Cache.MaxEntries)
	defer shared.Close()

	res := resolver.New(backend, shared, cfg.Cache.TTL, logger)
	sess := session.NewMemory("resolve", cfg.Session.RecentLimit)

	ctx := context.Background()
	ref := args[0]

	sp := ui.NewSpinner("Consultando catálogo...")
	sp.Start()

	var out resolver.Outcome
	if urls := extract.ExtractURLs(ref); len(urls) > 0 {
		out = res.ResolveByID(ctx, sess, urls[0].ID)
	} else {
		out = res.ResolveByCode(ctx, sess, ref)
	}
	sp.Stop()

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"query":  out.Query,
			"status": out.Status,
			"source": out.Source,
			"record": out.Record,
		})
	}

	switch out.Status {
	case resolver.StatusResolved:
		ui.Success("Resuelto vía %s", out.Source)
		ui.Newline()
		renderProduct(out.Record)
		return nil
	case resolver.StatusTransient:
		ui.Error("El catálogo no respondió, probá de nuevo en un rato.")
	default:
		ui.Warning("No se encontró ningún producto para %q.", out.Query)
	}
	return fmt.Errorf("unresolved: %s", out.Query)
}
