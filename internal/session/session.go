// Package session provides run ID generation and run artifact naming.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"
)

// GenerateRunID returns a 4-character random hex string (e.g., "a3f8").
// It avoids IDs that already name a report in dir.
func GenerateRunID(dir string) (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		bytes := make([]byte, 2)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("generating run ID: %w", err)
		}
		id := hex.EncodeToString(bytes)

		if !isRunIDInUse(dir, id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique run ID after 100 attempts (too many reports in %s?)", dir)
}

// isRunIDInUse checks whether dir already holds artifacts for id.
func isRunIDInUse(dir, id string) bool {
	if dir == "" {
		dir = "."
	}
	matches, err := filepath.Glob(filepath.Join(dir, ArtifactPrefix(id)+"-*"))
	if err != nil {
		return false
	}
	return len(matches) > 0
}

// ArtifactPrefix returns the common file name prefix for a run.
func ArtifactPrefix(runID string) string {
	return fmt.Sprintf("ipsift-%s", runID)
}

// ArtifactName returns a timestamped file name for a run artifact, e.g.
// "ipsift-a3f8-20250101-120000.json".
func ArtifactName(runID string, t time.Time, ext string) string {
	return fmt.Sprintf("%s-%s.%s", ArtifactPrefix(runID), t.Format("20060102-150405"), ext)
}

// ArtifactPath joins dir and ArtifactName.
func ArtifactPath(dir, runID string, t time.Time, ext string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ArtifactName(runID, t, ext))
}
