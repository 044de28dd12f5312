package binning

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// DomainBinning prefixes binning fingerprints.
// The version suffix leaves room for a future encoding change.
const DomainBinning = "cutflow/binning/v1"

// canonicalBytes encodes edges and labels in a fixed byte layout used for
// interning and fingerprinting:
//
//	uvarint(len(edges)) | float64 bits big-endian... | uvarint(len(labels)) | (uvarint(len) | bytes)...
//
// Negative zero is written as positive zero so that binnings that compare
// Equal always encode identically.
func canonicalBytes(edges []float64, labels []string) []byte {
	size := binary.MaxVarintLen64 * (2 + len(labels))
	size += 8 * len(edges)
	for _, l := range labels {
		size += len(l)
	}
	buf := make([]byte, 0, size)

	buf = binary.AppendUvarint(buf, uint64(len(edges)))
	for _, e := range edges {
		if e == 0 {
			e = 0
		}
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(e))
	}
	buf = binary.AppendUvarint(buf, uint64(len(labels)))
	for _, l := range labels {
		buf = binary.AppendUvarint(buf, uint64(len(l)))
		buf = append(buf, l...)
	}
	return buf
}

// hashWithDomain computes SHA-256 over domain + 0x00 + data.
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable content digest of the edges and labels.
// Equal binnings have equal fingerprints in every process, unlike IDs which
// depend on discovery order.
func (b Binning) Fingerprint() string {
	return hashWithDomain(DomainBinning, canonicalBytes(b.edges, b.labels))
}
