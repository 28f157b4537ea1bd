package filetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the decoding path an input takes.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// fallbackExtensions are accepted even when the declared MIME type is not allow-listed.
var fallbackExtensions = map[string]bool{"pdf": true, "jpg": true, "jpeg": true, "png": true}

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	Sniffed     bool
	Description string
}

// Detector checks inputs against an allow-list and resolves how they must be decoded.
type Detector struct {
	allowed map[string]bool
}

// New creates a detector for the given allow-listed MIME types.
func New(allowedMIME []string) *Detector {
	m := make(map[string]bool, len(allowedMIME))
	for _, t := range allowedMIME {
		m[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &Detector{allowed: m}
}

// Extension returns the lowercased filename extension without the dot.
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Allowed reports whether an input passes the type gate: declared MIME in the
// allow-list, else a known extension.
func (d *Detector) Allowed(declaredMIME, filename string) bool {
	if d.allowed[normalizeMIME(declaredMIME)] {
		return true
	}
	return fallbackExtensions[Extension(filename)]
}

// Detect resolves the decoding kind. Magic bytes win; the declared type and the
// extension are consulted only when sniffing finds nothing we decode.
func (d *Detector) Detect(data []byte, declaredMIME, filename string) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{MIMEType: mtype.String(), Extension: mtype.Extension()}

	switch {
	case mtype.Is("application/pdf"):
		info.Kind, info.Sniffed, info.Description = KindPDF, true, "PDF document"
	case mtype.Is("image/jpeg"), mtype.Is("image/png"):
		info.Kind, info.Sniffed, info.Description = KindImage, true, "Image file"
	default:
		ext := Extension(filename)
		if normalizeMIME(declaredMIME) == "application/pdf" || ext == "pdf" {
			info.Kind = KindPDF
		} else {
			info.Kind = KindImage
		}
		info.Description = "Unrecognized content, decoding by declared type"
		log.Debug().Str("sniffed", mtype.String()).Str("declared", declaredMIME).Str("file", filename).Str("kind", string(info.Kind)).Msg("falling back to declared type")
	}
	return info
}

func normalizeMIME(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, ";"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
