package asi

import (
	"encoding/json"
	"sort"
	"strings"

	archerrors "github.com/klauer/archclass/internal/errors"
)

// bigramRecord is the JSON-serializable shape of one CardPair's weight
// row; CardPair itself can't be a JSON object key, so the artifact is a
// flat list instead of a map.
type bigramRecord struct {
	A       string            `json:"a"`
	B       string            `json:"b"`
	Weights []ArchetypeWeight `json:"weights"`
}

// EncodeArtifact serializes a trained bigram table. Bigram storage has
// no bit-exactness requirement the way the NBAC codec does, so this
// uses encoding/json rather than a bespoke binary layout.
func EncodeArtifact(bigrams map[CardPair][]ArchetypeWeight) ([]byte, error) {
	records := make([]bigramRecord, 0, len(bigrams))
	for pair, weights := range bigrams {
		records = append(records, bigramRecord{A: pair.A, B: pair.B, Weights: weights})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].A != records[j].A {
			return records[i].A < records[j].A
		}
		return records[i].B < records[j].B
	})
	b, err := json.Marshal(records)
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, "encode bigram artifact: "+err.Error())
	}
	return b, nil
}

// DecodeArtifact deserializes an EncodeArtifact blob.
func DecodeArtifact(blob []byte) (map[CardPair][]ArchetypeWeight, error) {
	var records []bigramRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, archerrors.New(archerrors.CodeInputShape, "decode bigram artifact: "+err.Error())
	}
	bigrams := make(map[CardPair][]ArchetypeWeight, len(records))
	for _, r := range records {
		bigrams[CardPair{A: r.A, B: r.B}] = r.Weights
	}
	return bigrams, nil
}

// FilterForCards restricts bigrams to rows whose both endpoints are in
// cards, matching §4.3's "subset of bigram rows for which both
// endpoints are in L" input contract for the scorer. cards is matched
// case-insensitively against the bigram table's lowercased keys.
func FilterForCards(bigrams map[CardPair][]ArchetypeWeight, cards []string) map[CardPair][]ArchetypeWeight {
	present := make(map[string]bool, len(cards))
	for _, c := range cards {
		present[strings.ToLower(c)] = true
	}
	filtered := make(map[CardPair][]ArchetypeWeight)
	for pair, weights := range bigrams {
		if present[pair.A] && present[pair.B] {
			filtered[pair] = weights
		}
	}
	return filtered
}
