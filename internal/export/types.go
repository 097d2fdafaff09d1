// Package export renders registration tables as xlsx workbooks and
// optionally stores them in an S3-compatible bucket.
package export

import "errors"

// MimeXLSX is the content type of the generated workbooks.
const MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Result contains the export output. ObjectKey is set when the workbook
// was uploaded.
type Result struct {
	Data      []byte `json:"-"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	Rows      int    `json:"rows"`
	ObjectKey string `json:"objectKey,omitempty"`
}

var (
	// ErrStorageUnavailable indicates the object store could not be reached or prepared.
	ErrStorageUnavailable = errors.New("export storage unavailable")
)
