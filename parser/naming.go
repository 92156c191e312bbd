package parser

import (
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/aluiziolira/go-book-harvester/config"
)

const (
	maxFilenameBytes = 200
	illegalRunes     = `\/:*?"<>|`
	tokenLength      = 8
)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// TokenFunc returns the uniqueness token for an item's artifact.
type TokenFunc func(itemID int) string

// RandomToken derives a short token from a random UUID.
func RandomToken(int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}

// IDToken uses the item id, so the same item always maps to the same filename.
func IDToken(itemID int) string {
	return strconv.Itoa(itemID)
}

// Namer builds collision-avoiding artifact filenames.
type Namer struct {
	token TokenFunc
}

// NewNamer returns a namer for the given strategy.
func NewNamer(strategy config.NamingStrategy) *Namer {
	if strategy == config.NamingByID {
		return &Namer{token: IDToken}
	}
	return &Namer{token: RandomToken}
}

// NewNamerWithToken returns a namer using a custom token source.
func NewNamerWithToken(token TokenFunc) *Namer {
	return &Namer{token: token}
}

// Filename sanitizes desired and interposes a token before the extension.
// A non-empty ext overrides the extension carried by desired.
func (n *Namer) Filename(desired, ext string, itemID int) string {
	name := SanitizeFilename(desired)
	if name == "" {
		name = fmt.Sprintf("item-%d", itemID)
	}

	stem := name
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		if e := filepath.Ext(name); e != "" && e != name {
			ext = strings.TrimPrefix(e, ".")
			stem = strings.TrimSuffix(name, e)
		}
	}

	token := n.token(itemID)
	if ext == "" {
		return stem + "_" + token
	}
	return stem + "_" + token + "." + ext
}

// SanitizeFilename removes characters that are illegal in common filesystems.
// Non-Latin text is kept as is.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(strings.ToValidUTF8(name, ""))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(illegalRunes, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimRight(strings.TrimSpace(b.String()), ". ")
	out = strings.TrimRight(truncateBytes(out, maxFilenameBytes), ". ")
	if out == "" {
		return ""
	}

	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(out, ext)
	if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
		out = stem + "_" + ext
	}
	return out
}

// FilenameFromDisposition returns the filename parameter of a Content-Disposition header.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := 0
	for i, r := range s {
		if i+utf8.RuneLen(r) > limit {
			break
		}
		cut = i + utf8.RuneLen(r)
	}
	return s[:cut]
}
