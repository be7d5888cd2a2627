package validator

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"

	"github.com/fontkeep/fontkeep/internal/font"
)

// allowedExtensions gates candidates before any content is read.
var allowedExtensions = map[string]bool{
	"ttf":   true,
	"otf":   true,
	"ttc":   true,
	"otc":   true,
	"woff":  true,
	"woff2": true,
	"dfont": true,
}

// RunWorker is the whole worker process: read one Request from stdin,
// validate each path in order, write the Outcome array to stdout. The
// worker never writes absolute paths to stdout.
func RunWorker(stdin io.Reader, stdout io.Writer) error {
	var req Request
	if err := json.NewDecoder(stdin).Decode(&req); err != nil {
		return fmt.Errorf("failed to decode validation request: %w", err)
	}

	outcomes := make([]Outcome, 0, len(req.Paths))
	for _, path := range req.Paths {
		outcomes = append(outcomes, ValidateFile(path, req))
	}

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(outcomes); err != nil {
		return fmt.Errorf("failed to encode validation response: %w", err)
	}
	return nil
}

// ValidateFile checks one candidate against the request limits and, if
// it passes, extracts its face metadata. The returned Outcome never
// contains the input path; the supervisor reattaches paths by position.
func ValidateFile(path string, req Request) Outcome {
	base := filepath.Base(path)

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !allowedExtensions[ext] {
		return Failure(KindInvalidFormat, fmt.Sprintf("unsupported file extension on %s", base))
	}

	// Size is checked from metadata before any content is read.
	stat, err := os.Stat(path)
	if err != nil {
		return Failure(KindInvalidFormat, fmt.Sprintf("cannot stat %s", base))
	}
	if stat.Size() < 4 {
		return Failure(KindInvalidFormat, fmt.Sprintf("%s is too small to be a font", base))
	}
	if req.MaxFileSizeBytes > 0 && uint64(stat.Size()) > req.MaxFileSizeBytes {
		return Failure(KindTooLarge, fmt.Sprintf("%s is %d bytes, limit is %d",
			base, stat.Size(), req.MaxFileSizeBytes))
	}

	// A success must always carry parser-extracted metadata. Containers
	// the structural parser cannot open are rejected, never waved
	// through on extension or magic number alone.
	switch ext {
	case "woff", "woff2", "dfont":
		return Failure(KindInvalidFormat,
			fmt.Sprintf("%s container format is not supported for structural validation", base))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Failure(KindInvalidFormat, fmt.Sprintf("cannot read %s", base))
	}

	if isCollection(data) && !req.AllowCollections {
		return Failure(KindInvalidFormat, fmt.Sprintf("%s is a font collection, which is not permitted", base))
	}

	info, werr := parseSfnt(base, data)
	if werr != nil {
		return Outcome{OK: false, Error: werr}
	}
	info.Format = font.FormatForExtension(path)
	return Success(info)
}

// parseSfnt extracts face metadata from raw TrueType/OpenType data,
// including the first face of a collection. A panicking parser is
// reported as an invalid format, never crashes the worker.
func parseSfnt(base string, data []byte) (info font.FaceInfo, werr *WireError) {
	defer func() {
		if r := recover(); r != nil {
			info = font.FaceInfo{}
			werr = &WireError{
				Kind:    KindInvalidFormat,
				Message: Sanitize(fmt.Sprintf("%s triggered a parser fault", base)),
			}
		}
	}()

	coll, err := sfnt.ParseCollection(data)
	if err != nil {
		return font.FaceInfo{}, &WireError{
			Kind:    KindInvalidFormat,
			Message: Sanitize(fmt.Sprintf("%s is not a valid font: %v", base, err)),
		}
	}
	if coll.NumFonts() == 0 {
		return font.FaceInfo{}, &WireError{
			Kind:    KindInvalidFormat,
			Message: Sanitize(fmt.Sprintf("%s contains no faces", base)),
		}
	}

	f, err := coll.Font(0)
	if err != nil {
		return font.FaceInfo{}, &WireError{
			Kind:    KindInvalidFormat,
			Message: Sanitize(fmt.Sprintf("%s face 0 is unreadable: %v", base, err)),
		}
	}

	family, _ := f.Name(nil, sfnt.NameIDFamily)
	style, _ := f.Name(nil, sfnt.NameIDSubfamily)
	full, _ := f.Name(nil, sfnt.NameIDFull)
	ps, _ := f.Name(nil, sfnt.NameIDPostScript)

	if family == "" {
		family = "Unknown"
	}
	if style == "" {
		style = "Regular"
	}
	if full == "" {
		full = family + " " + style
	}
	if ps == "" {
		ps = strings.ReplaceAll(family, " ", "")
	}

	weight, italic := readOS2(data)

	return font.FaceInfo{
		PostScriptName: ps,
		FullName:       full,
		FamilyName:     family,
		StyleName:      style,
		Weight:         weight,
		Italic:         italic,
		FaceIndex:      0,
	}, nil
}

// isCollection reports whether the data carries the TTC header.
func isCollection(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "ttcf"
}

// readOS2 pulls usWeightClass and the italic bit of fsSelection from
// the OS/2 table of the first face. Missing or truncated tables yield
// the Regular defaults.
func readOS2(data []byte) (weight uint16, italic bool) {
	weight = 400

	fontStart := uint32(0)
	if isCollection(data) {
		if len(data) < 16 {
			return weight, false
		}
		fontStart = binary.BigEndian.Uint32(data[12:16])
	}
	if uint64(fontStart)+12 > uint64(len(data)) {
		return weight, false
	}

	numTables := binary.BigEndian.Uint16(data[fontStart+4 : fontStart+6])
	records := fontStart + 12
	for i := uint16(0); i < numTables; i++ {
		rec := uint64(records) + uint64(i)*16
		if rec+16 > uint64(len(data)) {
			return weight, false
		}
		if string(data[rec:rec+4]) != "OS/2" {
			continue
		}
		off := uint64(binary.BigEndian.Uint32(data[rec+8 : rec+12]))
		if off+64 > uint64(len(data)) {
			return weight, false
		}
		weight = binary.BigEndian.Uint16(data[off+4 : off+6])
		fsSelection := binary.BigEndian.Uint16(data[off+62 : off+64])
		italic = fsSelection&0x0001 != 0
		return weight, italic
	}
	return weight, false
}
