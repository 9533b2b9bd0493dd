package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

// WalletHash short file-safe identifier for an address
func WalletHash(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:])[:12]
}

// datedPath <dir>/<YYYY-MM-DD UTC>/<hash><ext>
func datedPath(dir string, at time.Time, address, ext string) string {
	return filepath.Join(dir, at.UTC().Format("2006-01-02"), WalletHash(address)+ext)
}

// JSONExporter writes each analysis to a per-day JSON file
type JSONExporter struct {
	dir    string
	logger zerolog.Logger
}

func NewJSONExporter(dir string) *JSONExporter {
	return &JSONExporter{
		dir:    dir,
		logger: log.With().Str("component", "json_exporter").Logger(),
	}
}

// Export writes the analysis and returns the file path; a later export for
// the same wallet on the same day replaces the file
func (e *JSONExporter) Export(analysis model.Analysis) (string, error) {
	at := analysis.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	path := datedPath(e.dir, at, analysis.Signal.Address, ".json")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create signal directory: %w", err)
	}
	data, err := json.MarshalIndent(analysis, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode signal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write signal %s: %w", path, err)
	}

	e.logger.Info().Str("path", path).Msg("Signal saved")
	return path, nil
}
