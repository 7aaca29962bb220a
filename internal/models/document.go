package models

import "strings"

// FileType 文件类型
type FileType string

const (
	PDF   FileType = "pdf"
	Image FileType = "image"
)

var extToFileType = map[string]FileType{
	".pdf":  PDF,
	".jpg":  Image,
	".jpeg": Image,
	".png":  Image,
	".tif":  Image,
	".tiff": Image,
	".bmp":  Image,
	".gif":  Image,
}

// DetectFileType maps a file extension (with or without the leading dot) to
// the kind of renderer that can turn it into page images.
func DetectFileType(ext string) (FileType, bool) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	t, ok := extToFileType[ext]
	return t, ok
}

// PageImage is one normalized raster page derived from an upload.
type PageImage struct {
	Number   int    `json:"number"`
	Data     []byte `json:"-"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MimeType string `json:"mimeType"`
	Source   string `json:"source"`
}

// Extraction is the schema-shaped object a model returns for one page.
type Extraction map[string]any

// MetadataKey holds per-page bookkeeping inside an Extraction.
const MetadataKey = "_metadata"

// Metadata returns the bookkeeping map, creating it when missing.
func (e Extraction) Metadata() map[string]any {
	if m, ok := e[MetadataKey].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	e[MetadataKey] = m
	return m
}

// PageNumber reports the page recorded in the metadata, or 0.
func (e Extraction) PageNumber() int {
	m, ok := e[MetadataKey].(map[string]any)
	if !ok {
		return 0
	}
	switch v := m["page_number"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
