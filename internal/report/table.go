package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
)

// MaxCellWidth bounds terminal cells; longer values are truncated.
const MaxCellWidth = 48

type palette struct {
	info     func(a ...interface{}) string
	warning  func(a ...interface{}) string
	critical func(a ...interface{}) string
	heading  func(a ...interface{}) string
}

func newPalette(colorize bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if !colorize {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		info:     mk(color.FgCyan),
		warning:  mk(color.FgYellow),
		critical: mk(color.FgRed, color.Bold),
		heading:  mk(color.Bold),
	}
}

func (p palette) severity(sev checker.Severity, s string) string {
	switch sev {
	case checker.SeverityCritical:
		return p.critical(s)
	case checker.SeverityWarning:
		return p.warning(s)
	default:
		return p.info(s)
	}
}

// PrintTable renders the view as an aligned table followed by the alert feed.
// The severity column is last so color codes never skew alignment.
func PrintTable(w io.Writer, view View, colorize bool) error {
	p := newPalette(colorize)

	if len(view.Rows) == 0 {
		_, err := fmt.Fprintln(w, p.warning("No evaluated hosts."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tPROTOCOL\tCIPHER\tKEY EXCHANGE\tISSUER\tVALID TO\tEXPIRES\tRSA\tHEADERS\tSEVERITY")
	for _, r := range view.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(r.Host),
			truncate(r.Protocol),
			truncate(r.Cipher),
			truncate(r.KeyExchange),
			truncate(r.Issuer),
			r.ValidTo,
			r.ExpiresIn,
			r.RSA,
			truncate(missingHeaders(r.Headers)),
			p.severity(r.Severity, r.Severity.Label()),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	s := view.Summary()
	fmt.Fprintf(w, "\nHosts: %d | %s: %s | %s: %s | %s: %s\n",
		s.Total,
		"Critical", p.critical(fmt.Sprintf("%d", s.Critical)),
		"Warning", p.warning(fmt.Sprintf("%d", s.Warning)),
		"Info", p.info(fmt.Sprintf("%d", s.Info)),
	)

	if len(view.Alerts) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", p.heading("Alerts"))
	for _, a := range view.Alerts {
		if _, err := fmt.Fprintln(w, p.severity(a.Severity, a.String())); err != nil {
			return err
		}
	}
	return nil
}

// missingHeaders condenses the headers column to the missing names.
func missingHeaders(headers string) string {
	var missing []string
	for _, label := range strings.Split(headers, "; ") {
		if name, ok := strings.CutSuffix(label, " (missing)"); ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return "ok"
	}
	return "missing: " + strings.Join(missing, ", ")
}

func truncate(s string) string {
	if s == "" {
		return NoValue
	}
	if runewidth.StringWidth(s) <= MaxCellWidth {
		return s
	}
	return runewidth.Truncate(s, MaxCellWidth, "…")
}
