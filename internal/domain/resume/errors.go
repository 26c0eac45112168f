package resume

import "errors"

var (
	// ErrUnsupportedFormat is a warning, not a failure: the extraction is empty
	// and the caller may still go on with the analysis.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrUnreadableDocument wraps parser errors for documents that cannot be opened.
	ErrUnreadableDocument = errors.New("unreadable document")

	ErrEmptyUpload = errors.New("empty upload")
)
