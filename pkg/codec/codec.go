// Package codec implements the bit-exact binary artifact format the
// trainers write and the scorers read: a meta blob (NBM1) carrying the
// archetype index and both trained models, and per-card entry blobs
// (NBC1, NBC2) carrying each card's dense log-theta arrays.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/nbac"
)

var (
	metaMagic   = [4]byte{'N', 'B', 'M', '1'}
	cardMagicV1 = [4]byte{'N', 'B', 'C', '1'}
	cardMagicV2 = [4]byte{'N', 'B', 'C', '2'}
)

func versionSkew(format string, args ...any) error {
	return archerrors.New(archerrors.CodeVersionSkew, fmt.Sprintf(format, args...))
}

// EncodeMeta serializes meta per the NBM1 layout. It returns an error if
// the counts/presence arrays don't match the archetype count or contain a
// non-finite float.
func EncodeMeta(meta nbac.Meta) ([]byte, error) {
	if meta.Version != 1 {
		return nil, versionSkew("unsupported meta version %d", meta.Version)
	}
	aCount := len(meta.Archetypes)
	if err := checkModel(meta.Counts, aCount); err != nil {
		return nil, err
	}
	if err := checkModel(meta.Presence, aCount); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, metaMagic[:]...)

	header := make([]byte, 1+8+4)
	header[0] = byte(meta.Version)
	binary.LittleEndian.PutUint64(header[1:9], uint64(meta.BuildUnix))
	binary.LittleEndian.PutUint32(header[9:13], uint32(aCount))
	buf = append(buf, header...)

	for _, name := range meta.Archetypes {
		b := []byte(name)
		if len(b) > 65535 {
			return nil, archerrors.New(archerrors.CodeInputShape, "archetype name too long")
		}
		nameLen := make([]byte, 2)
		binary.LittleEndian.PutUint16(nameLen, uint16(len(b)))
		buf = append(buf, nameLen...)
		buf = append(buf, b...)
	}

	buf = append(buf, encodeModel(meta.Counts)...)
	buf = append(buf, encodeModel(meta.Presence)...)

	return buf, nil
}

func checkModel(m nbac.Model, aCount int) error {
	if len(m.LogPrior) != aCount || len(m.LogUnseen) != aCount {
		return archerrors.New(archerrors.CodeInputShape, "meta arrays must match archetype count")
	}
	for _, x := range m.LogPrior {
		if !isFinite(x) {
			return archerrors.New(archerrors.CodeNumericDomain, "meta contains non-finite float")
		}
	}
	for _, x := range m.LogUnseen {
		if !isFinite(x) {
			return archerrors.New(archerrors.CodeNumericDomain, "meta contains non-finite float")
		}
	}
	return nil
}

func encodeModel(m nbac.Model) []byte {
	kind := byte(0)
	if m.Kind == nbac.KindPresence {
		kind = 1
	}

	buf := make([]byte, 1+4+4+4)
	buf[0] = kind
	binary.LittleEndian.PutUint32(buf[1:5], math.Float32bits(float32(m.Params.Alpha)))
	binary.LittleEndian.PutUint32(buf[5:9], math.Float32bits(float32(m.Params.BackgroundLambda)))
	binary.LittleEndian.PutUint32(buf[9:13], math.Float32bits(float32(m.Params.Temperature)))

	for _, x := range m.LogPrior {
		buf = appendFloat32(buf, x)
	}
	for _, x := range m.LogUnseen {
		buf = appendFloat32(buf, x)
	}
	return buf
}

func appendFloat32(buf []byte, x float64) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(x)))
	return append(buf, b[:]...)
}

func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func isFinite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}

// DecodeMeta parses an NBM1 blob, accepting either raw bytes or a
// base64-wrapped text form (see AsBytes). It validates the magic, the
// declared model order (counts then presence), and that both models'
// arrays match the declared archetype count — any violation is reported
// as VersionSkew, matching the scorer's consistency-marker contract.
func DecodeMeta(blob any) (nbac.Meta, error) {
	b, err := AsBytes(blob)
	if err != nil {
		return nbac.Meta{}, err
	}
	if len(b) < 4+1+8+4 {
		return nbac.Meta{}, versionSkew("meta blob too short")
	}
	if [4]byte(b[:4]) != metaMagic {
		return nbac.Meta{}, versionSkew("invalid meta magic %q", b[:4])
	}

	version := int(b[4])
	if version != 1 {
		return nbac.Meta{}, versionSkew("unsupported meta version %d", version)
	}
	buildUnix := int64(binary.LittleEndian.Uint64(b[5:13]))
	aCount := int(binary.LittleEndian.Uint32(b[13:17]))
	offset := 17

	archetypes := make([]string, 0, aCount)
	for i := 0; i < aCount; i++ {
		if offset+2 > len(b) {
			return nbac.Meta{}, versionSkew("meta blob truncated in archetype table")
		}
		n := int(binary.LittleEndian.Uint16(b[offset : offset+2]))
		offset += 2
		if offset+n > len(b) {
			return nbac.Meta{}, versionSkew("meta blob truncated in archetype name")
		}
		archetypes = append(archetypes, string(b[offset:offset+n]))
		offset += n
	}

	countsModel, offset, err := decodeModel(b, offset, aCount)
	if err != nil {
		return nbac.Meta{}, err
	}
	presenceModel, offset, err := decodeModel(b, offset, aCount)
	if err != nil {
		return nbac.Meta{}, err
	}
	_ = offset

	if countsModel.Kind != nbac.KindCounts || presenceModel.Kind != nbac.KindPresence {
		return nbac.Meta{}, versionSkew("meta models out of order or invalid")
	}

	return nbac.Meta{
		Version:    version,
		BuildUnix:  buildUnix,
		Archetypes: archetypes,
		Counts:     countsModel,
		Presence:   presenceModel,
	}, nil
}

func decodeModel(b []byte, offset, aCount int) (nbac.Model, int, error) {
	const headerLen = 1 + 4 + 4 + 4
	if offset+headerLen > len(b) {
		return nbac.Model{}, offset, versionSkew("meta blob truncated in model header")
	}
	kind := b[offset]
	alpha := readFloat32(b[offset+1 : offset+5])
	backgroundLambda := readFloat32(b[offset+5 : offset+9])
	temperature := readFloat32(b[offset+9 : offset+13])
	offset += headerLen

	total := aCount * 2
	if offset+4*total > len(b) {
		return nbac.Model{}, offset, versionSkew("meta blob truncated in model arrays")
	}
	logPrior := make([]float64, aCount)
	logUnseen := make([]float64, aCount)
	for i := 0; i < aCount; i++ {
		logPrior[i] = readFloat32(b[offset+4*i : offset+4*i+4])
	}
	offset += 4 * aCount
	for i := 0; i < aCount; i++ {
		logUnseen[i] = readFloat32(b[offset+4*i : offset+4*i+4])
	}
	offset += 4 * aCount

	modelKind := nbac.KindCounts
	if kind == 1 {
		modelKind = nbac.KindPresence
	}

	return nbac.Model{
		Kind:      modelKind,
		Params:    nbac.Params{Alpha: alpha, BackgroundLambda: backgroundLambda, Temperature: temperature},
		LogPrior:  logPrior,
		LogUnseen: logUnseen,
	}, offset, nil
}

// EncodeCardEntry serializes a card's log-theta arrays as NBC2 when both
// background log-q values are present, or NBC1 when they are absent (the
// pre-background-tracking format). It errors if the two theta arrays
// differ in length or contain a non-finite float.
func EncodeCardEntry(entry nbac.CardEntry) ([]byte, error) {
	if len(entry.LogThetaCounts) != len(entry.LogThetaPresence) {
		return nil, archerrors.New(archerrors.CodeInputShape, "model arrays must be same length")
	}
	for _, x := range entry.LogThetaCounts {
		if !isFinite(x) {
			return nil, archerrors.New(archerrors.CodeNumericDomain, "card entry contains non-finite float")
		}
	}
	for _, x := range entry.LogThetaPresence {
		if !isFinite(x) {
			return nil, archerrors.New(archerrors.CodeNumericDomain, "card entry contains non-finite float")
		}
	}

	aCount := len(entry.LogThetaCounts)

	if entry.LogQCounts == nil || entry.LogQPresence == nil {
		buf := make([]byte, 0, 8+4*2*aCount)
		buf = append(buf, cardMagicV1[:]...)
		kBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(kBytes, uint32(aCount))
		buf = append(buf, kBytes...)
		for _, x := range entry.LogThetaCounts {
			buf = appendFloat32(buf, x)
		}
		for _, x := range entry.LogThetaPresence {
			buf = appendFloat32(buf, x)
		}
		return buf, nil
	}

	if !isFinite(*entry.LogQCounts) || !isFinite(*entry.LogQPresence) {
		return nil, archerrors.New(archerrors.CodeNumericDomain, "background log-q must be finite")
	}

	buf := make([]byte, 0, 16+4*2*aCount)
	buf = append(buf, cardMagicV2[:]...)
	header := make([]byte, 4+4+4)
	binary.LittleEndian.PutUint32(header[0:4], uint32(aCount))
	binary.LittleEndian.PutUint32(header[4:8], math.Float32bits(float32(*entry.LogQCounts)))
	binary.LittleEndian.PutUint32(header[8:12], math.Float32bits(float32(*entry.LogQPresence)))
	buf = append(buf, header...)
	for _, x := range entry.LogThetaCounts {
		buf = appendFloat32(buf, x)
	}
	for _, x := range entry.LogThetaPresence {
		buf = appendFloat32(buf, x)
	}
	return buf, nil
}

// DecodeCardEntry parses an NBC1 or NBC2 blob, accepting the same
// raw/base64-wrapped forms as DecodeMeta. Any magic other than NBC1/NBC2,
// or a length mismatch against the declared K, is reported as
// VersionSkew.
func DecodeCardEntry(blob any) (nbac.CardEntry, error) {
	b, err := AsBytes(blob)
	if err != nil {
		return nbac.CardEntry{}, err
	}
	if len(b) < 4+4 {
		return nbac.CardEntry{}, versionSkew("card blob too short")
	}

	var magic [4]byte
	copy(magic[:], b[:4])

	switch magic {
	case cardMagicV1:
		aCount := int(binary.LittleEndian.Uint32(b[4:8]))
		offset := 8
		expected := 8 + 4*2*aCount
		if len(b) != expected {
			return nbac.CardEntry{}, versionSkew("card blob has unexpected length (K=%d)", aCount)
		}
		counts, presence := readThetaPair(b, offset, aCount)
		return nbac.CardEntry{LogThetaCounts: counts, LogThetaPresence: presence}, nil

	case cardMagicV2:
		aCount := int(binary.LittleEndian.Uint32(b[4:8]))
		if len(b) < 16 {
			return nbac.CardEntry{}, versionSkew("card blob has unexpected length (K=%d)", aCount)
		}
		logQCounts := readFloat32(b[8:12])
		logQPresence := readFloat32(b[12:16])
		offset := 16
		expected := offset + 4*2*aCount
		if len(b) != expected {
			return nbac.CardEntry{}, versionSkew("card blob has unexpected length (K=%d)", aCount)
		}
		counts, presence := readThetaPair(b, offset, aCount)
		return nbac.CardEntry{
			LogThetaCounts:   counts,
			LogThetaPresence: presence,
			LogQCounts:       &logQCounts,
			LogQPresence:     &logQPresence,
		}, nil

	default:
		return nbac.CardEntry{}, versionSkew("invalid card magic %q", b[:4])
	}
}

func readThetaPair(b []byte, offset, aCount int) ([]float64, []float64) {
	counts := make([]float64, aCount)
	presence := make([]float64, aCount)
	for i := 0; i < aCount; i++ {
		counts[i] = readFloat32(b[offset+4*i : offset+4*i+4])
	}
	offset += 4 * aCount
	for i := 0; i < aCount; i++ {
		presence[i] = readFloat32(b[offset+4*i : offset+4*i+4])
	}
	return counts, presence
}

// AsBytes normalizes a blob read back from a store into raw bytes,
// accepting either []byte directly or a string wrapped per the store's
// base64 text fallback ("b64:<base64>", or bare base64 for stores that
// drop the prefix).
func AsBytes(blob any) ([]byte, error) {
	switch v := blob.(type) {
	case []byte:
		return v, nil
	case string:
		s := strings.TrimPrefix(v, "b64:")
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("decode base64 blob: %v", err))
		}
		return decoded, nil
	case nil:
		return nil, archerrors.New(archerrors.CodeMissingArtifact, "missing blob")
	default:
		return nil, archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unsupported blob type %T", blob))
	}
}

// ToStoreValue returns blob as-is for drivers that can bind raw BLOBs, or
// as a "b64:"-prefixed string when forceBase64 is set for drivers that
// cannot.
func ToStoreValue(blob []byte, forceBase64 bool) any {
	if forceBase64 {
		return "b64:" + base64.StdEncoding.EncodeToString(blob)
	}
	return blob
}
