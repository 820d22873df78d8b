package models

// ErrorDetail describes why a conversion failed
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"` // provider diagnostics, omitted in production
}

// ConversionResult is the outcome of converting a single message.
// It is never mutated after construction.
type ConversionResult struct {
	Success       bool         `json:"success"`
	OriginalFile  string       `json:"originalFile"`
	ConvertedFile string       `json:"convertedFile,omitempty"`
	FileID        string       `json:"fileId,omitempty"`
	WebURL        string       `json:"webUrl,omitempty"`
	Size          int64        `json:"size,omitempty"`
	Folder        string       `json:"folder,omitempty"`
	Error         *ErrorDetail `json:"error,omitempty"`
}

// BatchReport aggregates the results of one batch run.
// Results preserve the folder listing order at call time.
type BatchReport struct {
	Folder    string             `json:"folder"`
	Total     int                `json:"total"`
	Converted int                `json:"converted"`
	Failed    int                `json:"failed"`
	Results   []ConversionResult `json:"results"`
}
