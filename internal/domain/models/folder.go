package models

import "time"

// Folder is one node of a tenant's folder tree. The tree is expressed
// through the ParentID back-reference only; children are found by
// filtering, never through stored child lists.
type Folder struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *string   `json:"parent_folder_id" db:"parent_id"` // nil = root level
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsChildOf reports whether the folder sits directly under the given
// parent, where nil means the tenant root.
func (f *Folder) IsChildOf(parentID *string) bool {
	if f.ParentID == nil || parentID == nil {
		return f.ParentID == nil && parentID == nil
	}
	return *f.ParentID == *parentID
}

// Clone returns a copy that shares no pointers with the original.
func (f *Folder) Clone() Folder {
	out := *f
	if f.ParentID != nil {
		id := *f.ParentID
		out.ParentID = &id
	}
	return out
}
