package config

const (
	// MaxTenantNameLength is the maximum length for tenant names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxTenantNameLength = 255

	// MaxDocumentNameLength is the maximum length for document names.
	MaxDocumentNameLength = 255

	// MaxFolderNameLength is the maximum length for folder names.
	// Same as document names for consistency.
	MaxFolderNameLength = 255

	// MaxFolderDepth is the maximum nesting depth of the folder tree.
	// A root-level folder sits at depth 1.
	MaxFolderDepth = 5

	// MaxPathWalk caps ancestor traversal when computing folder paths.
	// Any chain longer than this indicates a cycle in stored data and is
	// surfaced as an integrity error instead of looping forever.
	MaxPathWalk = 10

	// CNPJLength is the digit count of a Brazilian company tax id.
	CNPJLength = 14
)
