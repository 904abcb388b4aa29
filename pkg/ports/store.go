package ports

import "context"

// DocumentStore persists encoded pipeline documents by pipeline name.
type DocumentStore interface {
	// Save stores the encoded document of a pipeline.
	Save(ctx context.Context, name string, doc []byte) error

	// Load retrieves the document of a pipeline.
	// Returns domain.ErrDocumentNotFound if the pipeline does not exist.
	Load(ctx context.Context, name string) ([]byte, error)

	// Delete removes a pipeline document. Deleting a missing one is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the stored pipeline names.
	List(ctx context.Context) ([]string, error)
}
