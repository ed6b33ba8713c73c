package notify

// console.go — salida humana por stdout.
//
// Render de la tabla de eventos y del scoreboard para el modo CLI one-shot.
// Es solo presentación: ninguna decisión del pipeline vive aquí.

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/edgemachine/internal/domain"
)

// Console imprime eventos y scoreboard en formato tabla.
type Console struct {
	out io.Writer
}

// NewConsole crea un printer que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un printer para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintEvents imprime la tabla de eventos, más recientes primero.
func (c *Console) PrintEvents(events []domain.Event) {
	if len(events) == 0 {
		fmt.Fprintf(c.out, "[%s] no events tracked yet\n", time.Now().Format("15:04:05"))
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Title", "Key", "Vol 24h", "Crowd", "Adjusted", "Tokens")

	for _, e := range events {
		table.Append(
			truncate(e.Title, 48),
			truncate(e.NaturalKey(), 28),
			fmt.Sprintf("$%.0f", e.Volume24h),
			probLabel(e.CrowdP),
			probLabel(e.AdjustedP),
			tokenLabel(e),
		)
	}

	table.Render()
	fmt.Fprintf(c.out, "  %d events | Crowd = market midpoint | Adjusted = estimator output\n", len(events))
}

// PrintScoreboard imprime el agregado de accuracy.
func (c *Console) PrintScoreboard(sb domain.Scoreboard) {
	if sb.Count == 0 {
		fmt.Fprintln(c.out, "no resolved events yet — scoreboard is empty")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Resolved", "Crowd Brier", "Adjusted Brier", "Improvement")
	table.Append(
		fmt.Sprintf("%d", sb.Count),
		fmt.Sprintf("%.4f", sb.CrowdBrierMean),
		fmt.Sprintf("%.4f", sb.AdjustedBrierMean),
		fmt.Sprintf("%+.1f%%", sb.ImprovementPct),
	)
	table.Render()
}

func probLabel(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *p)
}

func tokenLabel(e domain.Event) string {
	switch {
	case e.YesTokenID == "":
		return "missing"
	case e.Positional:
		return "positional"
	}
	return "ok"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
