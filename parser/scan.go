package parser

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
)

// ParsedFile is one inbox file run through its parser. Exactly one of
// the Kira/PG/Bank slices is populated, matching Source. Err is set
// when the whole file failed; the caller logs it and moves on. Data
// keeps the raw bytes so the caller can archive after ingest commits.
type ParsedFile struct {
	Path         string
	Filename     string
	Source       models.TransactionSource
	Platform     string
	AccountLabel string

	Kira []RowResult[models.KiraTransaction]
	PG   []RowResult[models.PGTransaction]
	Bank []RowResult[models.BankTransaction]

	Data []byte
	Err  error
}

// DefaultInboxDir is used when RECON_INBOX_DIR is unset.
const DefaultInboxDir = "data/inbox"

func InboxDir() string {
	if dir := strings.TrimSpace(os.Getenv("RECON_INBOX_DIR")); dir != "" {
		return dir
	}
	return DefaultInboxDir
}

// ScanDirectory walks the inbox and parses every statement file not in
// alreadyParsed (keyed by filename). Subdirectory names carry the
// account label, mirroring the per-account download folders; root-level
// gateway files fall back to the filename prefix. The scan itself never
// touches the database: the caller supplies the parsed-file set and
// owns ingest and archiving.
func ScanDirectory(inboxDir string, alreadyParsed map[string]struct{}) ([]ParsedFile, error) {
	var files []ParsedFile

	err := filepath.WalkDir(inboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".xls", ".csv":
		default:
			return nil
		}
		if _, done := alreadyParsed[name]; done {
			return nil
		}

		label := ""
		if parent := filepath.Base(filepath.Dir(path)); parent != filepath.Base(inboxDir) && filepath.Dir(path) != inboxDir {
			label = parent
		}

		files = append(files, parseOne(path, name, label))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, utils.NewExternalIOError("scan inbox "+inboxDir, err)
	}
	return files, nil
}

func parseOne(path, name, dirLabel string) ParsedFile {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParsedFile{Path: path, Filename: name, Err: utils.NewExternalIOError("read "+path, err)}
	}
	pf := ParseStatement(name, dirLabel, data)
	pf.Path = path
	return pf
}

// ParseStatement routes one statement already in memory (uploads, tests)
// through the source-specific parser. dirLabel is the inbox subdirectory
// hint; empty is fine for uploaded files.
func ParseStatement(name, dirLabel string, data []byte) ParsedFile {
	pf := ParsedFile{Filename: name, Data: data}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "kira") || strings.EqualFold(dirLabel, "kira"):
		pf.Source = models.SourceKira
		pf.Platform = "kira"
		pf.Kira, pf.Err = KiraParser{}.Parse(name, data)

	case strings.Contains(strings.ToUpper(name), "RHB") || strings.Contains(lower, "bank"):
		pf.Source = models.SourceBank
		pf.Platform = "bank"
		pf.Bank, pf.Err = BankParser{}.Parse(name, data)
		if len(pf.Bank) > 0 || pf.Err != nil {
			pf.AccountLabel = parseBankFilename(name).accountLabel
		}

	default:
		pf.Source = models.SourceGateway
		pf.Platform = gatewayPlatform(lower)
		pf.AccountLabel = gatewayAccountLabel(name, dirLabel)
		pf.PG, pf.Err = PGParser{}.Parse(name, pf.Platform, pf.AccountLabel, data)
	}
	return pf
}

// gatewayPlatform tags a gateway file by its filename markers: the
// razer portal downloads are split into fpx/ewallet files, everything
// else is the fiuu single-layout export.
func gatewayPlatform(lower string) string {
	if strings.Contains(lower, "_fpx_") || strings.Contains(lower, "_ewallet_") {
		return "razer"
	}
	return "fiuu"
}

func gatewayAccountLabel(name, dirLabel string) string {
	if dirLabel != "" {
		return dirLabel
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, marker := range []string{"_fpx_", "_ewallet_"} {
		if at := strings.Index(strings.ToLower(base), marker); at > 0 {
			return base[:at]
		}
	}
	if parts := strings.SplitN(base, "_", 2); len(parts) > 0 {
		return parts[0]
	}
	return base
}
