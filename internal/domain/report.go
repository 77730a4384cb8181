package domain

// EvidenceFile references one stored evidence upload.
type EvidenceFile struct {
	FileName  string `json:"file_name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// ReportDraft accumulates the free-form fields of a submission across wizard
// steps. Immutable once submission begins.
type ReportDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Evidence    []EvidenceFile `json:"evidence"`
}
