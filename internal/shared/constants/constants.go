package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// ExportFilename is the name of the CSV document produced by an export.
	ExportFilename = "ssl-checker-report.csv"
	// DayMillis is the length of one day in milliseconds, used by the expiry countdown.
	DayMillis = 86_400_000
	// CriticalExpiryDays marks a certificate as critical when it expires within this many days.
	CriticalExpiryDays = 7
	// WarningExpiryDays marks a certificate as a warning when it expires within this many days.
	WarningExpiryDays = 30
	// PolicyReloadDebounce delays a policy reload until writes to the file settle.
	PolicyReloadDebounce = 500 * time.Millisecond
	// MaxEventBytes caps the size of a single ingested event body.
	MaxEventBytes = 1 << 20
)
