package documents

import "time"

type documentResponse struct {
	DocumentID  string     `json:"documentId"`
	FileName    string     `json:"fileName"`
	MimeType    string     `json:"mimeType"`
	SizeBytes   int64      `json:"sizeBytes"`
	PageCount   int        `json:"pageCount"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	ExtractedAt *time.Time `json:"extractedAt,omitempty"`
}

func toResponse(doc Document) documentResponse {
	return documentResponse{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		PageCount:   doc.PageCount,
		UploadedAt:  doc.CreatedAt,
		ExtractedAt: doc.ExtractedAt,
	}
}
