package models

import "time"

// Document is metadata for an uploaded file. The bytes live in the blob
// store at StoragePath; FileURL is the public location handed to clients.
type Document struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Type        string    `json:"type" db:"doc_type"` // upper-cased file extension
	Size        string    `json:"size" db:"size"`     // human-formatted, e.g. "12.3 KB"
	UploadDate  time.Time `json:"upload_date" db:"upload_date"`
	FileURL     string    `json:"file_url" db:"file_url"`
	StoragePath string    `json:"-" db:"storage_path"`
	FolderID    *string   `json:"folder_id" db:"folder_id"` // nil = tenant root
}

// InFolder reports whether the document sits at the given level,
// where nil means the tenant root. Both sides must match exactly.
func (d *Document) InFolder(folderID *string) bool {
	if d.FolderID == nil || folderID == nil {
		return d.FolderID == nil && folderID == nil
	}
	return *d.FolderID == *folderID
}

// Clone returns a copy that shares no pointers with the original.
func (d *Document) Clone() Document {
	out := *d
	if d.FolderID != nil {
		id := *d.FolderID
		out.FolderID = &id
	}
	return out
}

// CloneDocuments deep-copies a document list.
func CloneDocuments(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	out := make([]Document, len(docs))
	for i := range docs {
		out[i] = docs[i].Clone()
	}
	return out
}
