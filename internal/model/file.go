package model

// StoredFile describes an object written to storage by an upload.
type StoredFile struct {
	Path        string `json:"filePath"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}
