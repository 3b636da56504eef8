package commands

import (
	"fmt"
	"strconv"

	"github.com/bigdipper/sales-assistant/cmd/assistant-cli/ui"
	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/chat"
)

// renderDetection prints the troubleshooting panel for one turn.
func renderDetection(d *chat.Detection, usedMemory bool, strategy string) {
	ui.Section("Detección")

	if d.PastedJSON {
		ui.Info("Ficha JSON pegada")
	}
	for _, u := range d.URLs {
		ui.Info("URL detectada: %s (id %d)", u.URL, u.ID)
	}
	if len(d.Codes) > 0 {
		ui.Info("Códigos detectados: %v", d.Codes)
	}
	if usedMemory {
		ui.Info("Sin referencia nueva, se usaron los productos recientes de la sesión")
	}
	if strategy != "" {
		ui.Info("Estrategia de respuesta: %s", strategy)
	}

	if len(d.Resolutions) > 0 {
		rows := make([][]string, 0, len(d.Resolutions))
		for _, res := range d.Resolutions {
			rows = append(rows, []string{res.Query, res.Status, res.Source, res.Code})
		}
		ui.Table([]string{"Consulta", "Estado", "Fuente", "Código"}, rows)
	}
	ui.Newline()
}

// renderProduct prints a resolved record as key/value lines.
func renderProduct(rec catalog.Record) {
	fmt.Printf("Código:  %s\n", rec.Code)
	if rec.ID != 0 {
		fmt.Printf("ID:      %d\n", rec.ID)
	}
	if rec.DescriptionShort != "" {
		fmt.Printf("Nombre:  %s\n", rec.DescriptionShort)
	}
	fmt.Printf("Stock:   %s\n", strconv.Itoa(rec.Stock))
	if rec.Price > 0 {
		fmt.Printf("Precio:  USD %.2f\n", rec.Price)
	}
	if rec.DataSheet != "" {
		fmt.Printf("Ficha:   %s\n", rec.DataSheet)
	}
	for _, link := range rec.Links {
		fmt.Printf("Link:    %s\n", link)
	}
}
