package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
)

// ExportFilename is the name offered for the CSV export.
const ExportFilename = constants.ExportFilename

// ExportTimeLayout matches ISO-8601 UTC with milliseconds.
const ExportTimeLayout = "2006-01-02T15:04:05.000Z"

// WriteCSV writes every evaluation as one CSV record. Filters never apply to
// the export. Records end with CRLF.
func WriteCSV(w io.Writer, evals []checker.Evaluation) error {
	bw := bufio.NewWriter(w)
	if err := writeRecord(bw, Columns); err != nil {
		return err
	}
	for _, eval := range evals {
		if err := writeRecord(bw, exportRecord(eval)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func exportRecord(eval checker.Evaluation) []string {
	alerts := make([]string, len(eval.Findings))
	for i, f := range eval.Findings {
		alerts[i] = f.Alert()
	}

	rsa := ""
	if eval.RSABits != nil {
		rsa = strconv.Itoa(*eval.RSABits)
	}

	return []string{
		eval.Host,
		eval.Facts.Protocol,
		eval.Facts.Cipher,
		eval.Facts.KeyExchangeLabel(),
		eval.Facts.Issuer,
		isoTime(eval.Facts.ValidFromTime()),
		isoTime(eval.Facts.ValidToTime()),
		strconv.Itoa(eval.ExpiresDays),
		rsa,
		strings.Join(alerts, "; "),
		headerLabels(eval.HeaderChecks),
	}
}

func isoTime(t time.Time) string {
	return t.UTC().Format(ExportTimeLayout)
}

func writeRecord(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(csvField(field)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// csvField quotes fields that hold a separator, a quote or a line break.
// Semicolons are quoted too since spreadsheet locales use them as separators.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",;\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
