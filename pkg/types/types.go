package types

import (
	"path/filepath"
	"strings"
)

type MimeType string
type OutputType string
type FileExtension string
type SessionStatus string

const (
	// input types
	MimeTypeH264     MimeType = "video/h264"
	MimeTypeRawVideo MimeType = "video/x-raw"

	// output types
	OutputTypeUnknownFile OutputType = ""
	OutputTypeMKV         OutputType = "video/x-matroska"
	OutputTypeMP4         OutputType = "video/mp4"
	OutputTypeTS          OutputType = "video/mp2t"

	// file extensions
	FileExtensionMKV = ".mkv"
	FileExtensionMP4 = ".mp4"
	FileExtensionTS  = ".ts"

	// muxers
	MuxerMatroska = "matroskamux"
	MuxerMP4      = "mp4mux"
	MuxerMPEGTS   = "mpegtsmux"

	// session statuses
	SessionStatusStarting SessionStatus = "starting"
	SessionStatusActive   SessionStatus = "active"
	SessionStatusEnding   SessionStatus = "ending"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusFailed   SessionStatus = "failed"
	SessionStatusAborted  SessionStatus = "aborted"
)

var (
	DefaultOutputType = OutputTypeMKV

	OutputTypeForExtension = map[FileExtension]OutputType{
		FileExtensionMKV: OutputTypeMKV,
		FileExtensionMP4: OutputTypeMP4,
		FileExtensionTS:  OutputTypeTS,
	}

	FileExtensionForOutputType = map[OutputType]FileExtension{
		OutputTypeMKV: FileExtensionMKV,
		OutputTypeMP4: FileExtensionMP4,
		OutputTypeTS:  FileExtensionTS,
	}

	MuxerForOutputType = map[OutputType]string{
		OutputTypeMKV: MuxerMatroska,
		OutputTypeMP4: MuxerMP4,
		OutputTypeTS:  MuxerMPEGTS,
	}

	// every supported container carries the H.264 record branch
	CodecCompatibility = map[OutputType]map[MimeType]bool{
		OutputTypeMKV: {MimeTypeH264: true},
		OutputTypeMP4: {MimeTypeH264: true},
		OutputTypeTS:  {MimeTypeH264: true},
	}
)

// GetOutputType infers the container from the destination's extension,
// falling back to DefaultOutputType for unknown or missing extensions.
func GetOutputType(destination string) OutputType {
	ext := FileExtension(strings.ToLower(filepath.Ext(destination)))
	if outputType, ok := OutputTypeForExtension[ext]; ok {
		return outputType
	}
	return DefaultOutputType
}

// IsFinal reports whether a session in this status has ended.
func (s SessionStatus) IsFinal() bool {
	switch s {
	case SessionStatusComplete, SessionStatusFailed, SessionStatusAborted:
		return true
	default:
		return false
	}
}
