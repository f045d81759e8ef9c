package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
	"github.com/vk/webflowkit/internal/version"
)

// ManifestName is the file written at the root of every snapshot.
const ManifestName = "manifest.json"

// SnapshotManifest describes the content of one snapshot directory.
type SnapshotManifest struct {
	Version string         `json:"version"`
	Date    string         `json:"date"`
	Counter int            `json:"counter"`
	BuiltAt time.Time      `json:"built_at"`
	Files   []SnapshotFile `json:"files"`
}

// SnapshotFile is one entry of a SnapshotManifest.
type SnapshotFile struct {
	Path   string `json:"path"` // slash-separated, relative to the snapshot root
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

func newManifest(tag version.Tag, builtAt time.Time) *SnapshotManifest {
	return &SnapshotManifest{
		Version: tag.String(),
		Date:    tag.Date,
		Counter: tag.Counter,
		BuiltAt: builtAt.UTC(),
	}
}

func (m *SnapshotManifest) add(rel string, data []byte) {
	sum := sha256.Sum256(data)
	m.Files = append(m.Files, SnapshotFile{Path: rel, Size: len(data), SHA256: hex.EncodeToString(sum[:])})
}

func (m *SnapshotManifest) encode() ([]byte, error) {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// DecodeManifest parses a manifest.json written by a build.
func DecodeManifest(data []byte) (*SnapshotManifest, error) {
	var m SnapshotManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
