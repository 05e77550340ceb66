// Package report renders evaluated hosts: interactive rows and the alert
// feed, the CSV export, a terminal table, JSON, HTML and PDF summaries.
// Every sink is a projection over []checker.Evaluation.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
)

// DisplayTimeLayout is used for validity timestamps in interactive views.
const DisplayTimeLayout = "2006-01-02 15:04:05 MST"

// NoValue is displayed when a value could not be determined.
const NoValue = "—"

// Filter selects which evaluated hosts appear in the interactive view.
// A nil Visible map shows every severity.
type Filter struct {
	Host    string
	Visible map[checker.Severity]bool
}

// DefaultFilter shows every host and every severity.
func DefaultFilter() Filter {
	visible := make(map[checker.Severity]bool, len(checker.AllSeverities))
	for _, sev := range checker.AllSeverities {
		visible[sev] = true
	}
	return Filter{Visible: visible}
}

// Hide returns a copy of f with the given severities turned off.
func (f Filter) Hide(sevs ...checker.Severity) Filter {
	out := f.clone()
	for _, sev := range sevs {
		out.Visible[sev] = false
	}
	return out
}

// Only returns a copy of f showing only the given severities.
func (f Filter) Only(sevs ...checker.Severity) Filter {
	out := Filter{Host: f.Host, Visible: make(map[checker.Severity]bool, len(checker.AllSeverities))}
	for _, sev := range checker.AllSeverities {
		out.Visible[sev] = false
	}
	for _, sev := range sevs {
		out.Visible[sev] = true
	}
	return out
}

// Allows reports whether an evaluation passes the host and severity filters.
func (f Filter) Allows(eval checker.Evaluation) bool {
	if f.Host != "" && !strings.Contains(strings.ToLower(eval.Host), strings.ToLower(f.Host)) {
		return false
	}
	if f.Visible == nil {
		return true
	}
	return f.Visible[eval.Overall]
}

func (f Filter) clone() Filter {
	out := DefaultFilter()
	out.Host = f.Host
	for sev, on := range f.Visible {
		out.Visible[sev] = on
	}
	return out
}

// Row is one rendered host.
type Row struct {
	Host        string           `json:"host"`
	Protocol    string           `json:"protocol"`
	Cipher      string           `json:"cipher"`
	KeyExchange string           `json:"keyExchange"`
	Issuer      string           `json:"issuer"`
	ValidFrom   string           `json:"validFrom"`
	ValidTo     string           `json:"validTo"`
	ExpiresIn   string           `json:"expiresIn"`
	RSA         string           `json:"rsa"`
	Alerts      string           `json:"alerts"`
	Headers     string           `json:"headers"`
	Severity    checker.Severity `json:"severity"`
}

// Class is the styling class of the row: its overall severity.
func (r Row) Class() string {
	return r.Severity.String()
}

// Cells returns the display fields in column order.
func (r Row) Cells() []string {
	return []string{
		r.Host, r.Protocol, r.Cipher, r.KeyExchange, r.Issuer,
		r.ValidFrom, r.ValidTo, r.ExpiresIn, r.RSA, r.Alerts, r.Headers,
	}
}

// Columns are the display column titles, shared with the CSV export.
var Columns = []string{
	"Host", "Protocol", "Cipher", "KeyExchange", "Issuer",
	"ValidFrom", "ValidTo", "ExpiresIn", "RSA", "Alerts", "Headers",
}

// Alert is one entry of the alert feed.
type Alert struct {
	Host     string           `json:"host"`
	Severity checker.Severity `json:"severity"`
	Message  string           `json:"message"`
}

// String renders the alert as "host: [SEVERITY] message".
func (a Alert) String() string {
	return a.Host + ": [" + a.Severity.Label() + "] " + a.Message
}

// View is the interactive rendering: visible rows and their alerts.
type View struct {
	Rows   []Row   `json:"rows"`
	Alerts []Alert `json:"alerts"`
}

// AlertLines returns the alert feed as text lines.
func (v View) AlertLines() []string {
	lines := make([]string, len(v.Alerts))
	for i, a := range v.Alerts {
		lines[i] = a.String()
	}
	return lines
}

// Summary counts rows by severity.
type Summary struct {
	Total    int `json:"total"`
	Info     int `json:"info"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// Summary counts the rows of the view.
func (v View) Summary() Summary {
	s := Summary{Total: len(v.Rows)}
	for _, r := range v.Rows {
		switch r.Severity {
		case checker.SeverityCritical:
			s.Critical++
		case checker.SeverityWarning:
			s.Warning++
		default:
			s.Info++
		}
	}
	return s
}

// ViewOption customises BuildView.
type ViewOption func(*viewConfig)

type viewConfig struct {
	loc *time.Location
}

// WithLocation renders validity timestamps in loc instead of the local zone.
func WithLocation(loc *time.Location) ViewOption {
	return func(c *viewConfig) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// BuildView projects evaluations through filter into rows and alerts,
// preserving input order.
func BuildView(evals []checker.Evaluation, filter Filter, opts ...ViewOption) View {
	cfg := viewConfig{loc: time.Local}
	for _, opt := range opts {
		opt(&cfg)
	}

	view := View{Rows: []Row{}, Alerts: []Alert{}}
	for _, eval := range evals {
		if !filter.Allows(eval) {
			continue
		}
		view.Rows = append(view.Rows, buildRow(eval, cfg.loc))
		for _, f := range eval.Findings {
			view.Alerts = append(view.Alerts, Alert{Host: eval.Host, Severity: f.Severity, Message: f.Message})
		}
	}
	return view
}

func buildRow(eval checker.Evaluation, loc *time.Location) Row {
	alerts := make([]string, len(eval.Findings))
	for i, f := range eval.Findings {
		alerts[i] = f.Alert()
	}

	rsa := NoValue
	if eval.RSABits != nil {
		rsa = strconv.Itoa(*eval.RSABits) + " bits"
	}

	return Row{
		Host:        eval.Host,
		Protocol:    eval.Facts.Protocol,
		Cipher:      eval.Facts.Cipher,
		KeyExchange: eval.Facts.KeyExchangeLabel(),
		Issuer:      eval.Facts.Issuer,
		ValidFrom:   eval.Facts.ValidFromTime().In(loc).Format(DisplayTimeLayout),
		ValidTo:     eval.Facts.ValidToTime().In(loc).Format(DisplayTimeLayout),
		ExpiresIn:   strconv.Itoa(eval.ExpiresDays) + " days",
		RSA:         rsa,
		Alerts:      strings.Join(alerts, "; "),
		Headers:     headerLabels(eval.HeaderChecks),
		Severity:    eval.Overall,
	}
}

func headerLabels(checks []checker.HeaderCheck) string {
	labels := make([]string, len(checks))
	for i, hc := range checks {
		labels[i] = hc.Label()
	}
	return strings.Join(labels, "; ")
}
