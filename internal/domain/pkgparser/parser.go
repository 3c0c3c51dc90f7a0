package pkgparser

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

const (
	crxMagic      = "Cr24"
	crxHeaderSize = 16
	manifestFile  = "manifest.json"
)

// Distinct manifest validation failures
var (
	ErrNameMissing     = types.E(types.KindManifestInvalid, "manifest name is required")
	ErrVersionMissing  = types.E(types.KindManifestInvalid, "manifest version is required")
	ErrSchemaMissing   = types.E(types.KindManifestInvalid, "manifest_version field is required")
	errManifestNotJSON = "manifest is not valid JSON"
)

// Parser decodes extension packages into validated manifests.
// Safe for concurrent use.
type Parser struct {
	zip ZipReader
}

// NewParser creates a parser with the given archive capability
func NewParser(zip ZipReader) *Parser {
	return &Parser{zip: zip}
}

// Parse decodes the package at path: a directory with a manifest.json,
// a .zip archive, or a .crx container.
func (p *Parser) Parse(path string) (*types.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.E(types.KindFileNotFound, "package not found: %s", path)
	}

	if info.IsDir() {
		return p.parseDirectory(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.E(types.KindFileNotFound, "cannot read package %s: %v", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".crx") {
		return p.parseCRX(data)
	}
	return p.parseZIP(data)
}

// DeriveID derives the stable extension id from manifest identity.
// Every rune outside [a-z0-9] in the lowercased name becomes '-', then the
// raw version is appended after another '-'.
func DeriveID(name, version string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	b.WriteRune('-')
	b.WriteString(version)
	return b.String()
}

func (p *Parser) parseDirectory(dir string) (*types.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.E(types.KindFileNotFound, "manifest.json not found in %s", dir)
		}
		return nil, types.E(types.KindFileNotFound, "cannot read manifest in %s: %v", dir, err)
	}
	return decodeManifest(data)
}

func (p *Parser) parseZIP(data []byte) (*types.Manifest, error) {
	archive, err := p.zip.Open(data)
	if err != nil {
		return nil, types.E(types.KindInvalidPackage, "invalid zip container: %v", err)
	}

	manifest, err := archive.ReadFile(manifestFile)
	if err != nil {
		return nil, types.E(types.KindManifestInvalid, "manifest.json missing from archive: %v", err)
	}
	return decodeManifest(manifest)
}

// parseCRX decodes the CRX binary layout: 4-byte magic, u32 LE format
// version, u32 LE public-key length, u32 LE signature length, ZIP payload.
func (p *Parser) parseCRX(data []byte) (*types.Manifest, error) {
	if len(data) < crxHeaderSize {
		return nil, types.E(types.KindInvalidPackage,
			"crx truncated: %d bytes, need at least %d", len(data), crxHeaderSize)
	}

	if string(data[0:4]) != crxMagic {
		// No magic: treat the whole file as a ZIP
		return p.parseZIP(data)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != 2 && version != 3 {
		return nil, types.E(types.KindUnsupportedVersion, "unsupported crx version %d", version)
	}

	keyLen := binary.LittleEndian.Uint32(data[8:12])
	sigLen := binary.LittleEndian.Uint32(data[12:16])
	headerSize := uint64(crxHeaderSize) + uint64(keyLen) + uint64(sigLen)

	if headerSize >= uint64(len(data)) {
		return nil, types.E(types.KindInvalidPackage,
			"crx header size %d exceeds file size %d", headerSize, len(data))
	}

	return p.parseZIP(data[headerSize:])
}

// manifestWire distinguishes an absent manifest_version from zero
type manifestWire struct {
	Name            string                      `json:"name"`
	Version         string                      `json:"version"`
	ManifestVersion *int                        `json:"manifest_version"`
	Description     string                      `json:"description"`
	Permissions     []string                    `json:"permissions"`
	Background      *types.BackgroundDescriptor `json:"background"`
	ContentScripts  []types.ContentScript       `json:"content_scripts"`
}

func decodeManifest(data []byte) (*types.Manifest, error) {
	var wire manifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, types.E(types.KindManifestInvalid, "%s: %v", errManifestNotJSON, err)
	}

	if wire.Name == "" {
		return nil, ErrNameMissing
	}
	if wire.Version == "" {
		return nil, ErrVersionMissing
	}
	if wire.ManifestVersion == nil {
		return nil, ErrSchemaMissing
	}

	return &types.Manifest{
		Name:            wire.Name,
		Version:         wire.Version,
		ManifestVersion: *wire.ManifestVersion,
		Description:     wire.Description,
		Permissions:     wire.Permissions,
		Background:      wire.Background,
		ContentScripts:  wire.ContentScripts,
	}, nil
}
