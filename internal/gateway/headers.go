package gateway

import (
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

const genericMIME = "application/octet-stream"

// Mode selects how the client should treat the body.
type Mode int

const (
	// ModeDownload asks the browser to save the file.
	ModeDownload Mode = iota
	// ModeStream lets players and viewers render the file inline.
	ModeStream
)

func (m Mode) String() string {
	if m == ModeStream {
		return "stream"
	}
	return "download"
}

// baseHeaders are set on every successful answer, whichever source serves it.
func baseHeaders(rec domain.FileRecord, mode Mode) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", contentType(rec, mode))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Disposition", disposition(rec.Name, mode))
	return h
}

func contentType(rec domain.FileRecord, mode Mode) string {
	mt := rec.MIME
	if mode == ModeStream && (mt == "" || mt == genericMIME) {
		if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(rec.Name))); byExt != "" {
			return byExt
		}
	}
	if mt == "" {
		return genericMIME
	}
	return mt
}

func disposition(name string, mode Mode) string {
	typ := "attachment"
	if mode == ModeStream {
		typ = "inline"
	}
	if v := mime.FormatMediaType(typ, map[string]string{"filename": sanitizeFilename(name)}); v != "" {
		return v
	}
	return typ
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "download"
	}
	return name
}
