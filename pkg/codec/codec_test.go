package codec

import (
	"testing"

	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/nbac"
)

func sampleMeta() nbac.Meta {
	return nbac.Meta{
		Version:    1,
		BuildUnix:  0,
		Archetypes: []string{"Burn", "Tron"},
		Counts: nbac.Model{
			Kind:      nbac.KindCounts,
			Params:    nbac.Params{Alpha: 1, BackgroundLambda: 0.15, Temperature: 1},
			LogPrior:  []float64{-0.5, -0.9},
			LogUnseen: []float64{-4.1, -4.3},
		},
		Presence: nbac.Model{
			Kind:      nbac.KindPresence,
			Params:    nbac.Params{Alpha: 1, BackgroundLambda: 0.15, Temperature: 1},
			LogPrior:  []float64{-0.5, -0.9},
			LogUnseen: []float64{-3.1, -3.3},
		},
	}
}

func TestMetaRoundTrip(t *testing.T) {
	meta := sampleMeta()
	blob, err := EncodeMeta(meta)
	if err != nil {
		t.Fatalf("EncodeMeta: %v", err)
	}

	decoded, err := DecodeMeta(blob)
	if err != nil {
		t.Fatalf("DecodeMeta: %v", err)
	}
	if len(decoded.Archetypes) != 2 || decoded.Archetypes[0] != "Burn" || decoded.Archetypes[1] != "Tron" {
		t.Fatalf("unexpected archetypes: %v", decoded.Archetypes)
	}
	if decoded.Counts.Kind != nbac.KindCounts || decoded.Presence.Kind != nbac.KindPresence {
		t.Fatalf("unexpected model kinds: %+v / %+v", decoded.Counts, decoded.Presence)
	}

	blob2, err := EncodeMeta(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(blob) != string(blob2) {
		t.Fatal("repeated encode should be bit-identical")
	}
}

func TestMetaSwappedModelBlocksTriggersVersionSkew(t *testing.T) {
	meta := sampleMeta()
	blob, err := EncodeMeta(meta)
	if err != nil {
		t.Fatalf("EncodeMeta: %v", err)
	}

	// Swap the counts/presence model blocks by flipping their kind byte,
	// mirroring the S2 scenario ("swapping the two model blocks").
	modelLen := 1 + 4 + 4 + 4 + 4*2*len(meta.Archetypes)
	countsStart := len(blob) - 2*modelLen
	presenceStart := len(blob) - modelLen
	blob[countsStart], blob[presenceStart] = blob[presenceStart], blob[countsStart]

	_, err = DecodeMeta(blob)
	if !archerrors.HasCode(err, archerrors.CodeVersionSkew) {
		t.Fatalf("expected VersionSkew, got %v", err)
	}
}

func TestCardEntryV1RoundTrip(t *testing.T) {
	entry := nbac.CardEntry{
		LogThetaCounts:   []float64{-1.1, -2.2},
		LogThetaPresence: []float64{-0.9, -1.8},
	}
	blob, err := EncodeCardEntry(entry)
	if err != nil {
		t.Fatalf("EncodeCardEntry: %v", err)
	}

	decoded, err := DecodeCardEntry(blob)
	if err != nil {
		t.Fatalf("DecodeCardEntry: %v", err)
	}
	if decoded.LogQCounts != nil || decoded.LogQPresence != nil {
		t.Fatal("v1 entries should decode with nil log-q")
	}
	if len(decoded.LogThetaCounts) != 2 {
		t.Fatalf("unexpected theta length: %v", decoded.LogThetaCounts)
	}
}

func TestCardEntryV2RoundTripAndBase64Wrapper(t *testing.T) {
	logQC, logQP := -3.5, -3.2
	entry := nbac.CardEntry{
		LogThetaCounts:   []float64{-1.1, -2.2},
		LogThetaPresence: []float64{-0.9, -1.8},
		LogQCounts:       &logQC,
		LogQPresence:     &logQP,
	}
	blob, err := EncodeCardEntry(entry)
	if err != nil {
		t.Fatalf("EncodeCardEntry: %v", err)
	}

	decoded, err := DecodeCardEntry(blob)
	if err != nil {
		t.Fatalf("DecodeCardEntry: %v", err)
	}
	if decoded.LogQCounts == nil || decoded.LogQPresence == nil {
		t.Fatal("v2 entries should decode with non-nil log-q")
	}

	wrapped := ToStoreValue(blob, true)
	decodedFromText, err := DecodeCardEntry(wrapped)
	if err != nil {
		t.Fatalf("DecodeCardEntry(base64-wrapped): %v", err)
	}
	if len(decodedFromText.LogThetaCounts) != 2 {
		t.Fatalf("unexpected theta length from wrapped blob: %v", decodedFromText.LogThetaCounts)
	}
}

func TestDecodeCardEntryInvalidMagic(t *testing.T) {
	_, err := DecodeCardEntry([]byte("XXXX\x00\x00\x00\x00"))
	if !archerrors.HasCode(err, archerrors.CodeVersionSkew) {
		t.Fatalf("expected VersionSkew for an invalid magic, got %v", err)
	}
}
