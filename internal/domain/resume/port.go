package resume

import "context"

// Extractor port (text extraction per document format)
type Extractor interface {
	Extract(ctx context.Context, doc Document) (Extraction, error)
}

// Archive port (object storage for original uploads)
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
