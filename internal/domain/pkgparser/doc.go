// Package pkgparser decodes untrusted extension packages into validated
// manifests.
//
// Three container forms are accepted:
//   - Plain directory holding a manifest.json
//   - ZIP archive with a manifest.json entry
//   - CRX container (versions 2 and 3): "Cr24" magic, little-endian header,
//     ZIP payload after 16 + keyLen + sigLen bytes
//
// A CRX file without the magic is treated as a bare ZIP. ZIP decoding goes
// through the injected ZipReader capability so the parsing logic never
// depends on a specific archive library.
//
// The parser also owns extension id derivation: ids are a pure function of
// (name, version) and stable across parses.
package pkgparser
