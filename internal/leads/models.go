package leads

// Lead is created by CSV import on the backend. The console only reads it.
type Lead struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Area       string `json:"area,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
	ImportedAt string `json:"imported_at,omitempty"`
}

// DisplayName falls back to the phone when the CSV row had no name.
func (l Lead) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Phone
}

// UploadResult is the backend's answer to a CSV upload.
type UploadResult struct {
	Imported int    `json:"imported"`
	Leads    []Lead `json:"leads"`
}
