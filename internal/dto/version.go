package dto

// CompareVersionsRequest names the two versions to compare.
type CompareVersionsRequest struct {
	VersionID      string `json:"version_id" validate:"required"`
	OtherVersionID string `json:"other_version_id" validate:"required"`
}

// RelationshipRequest links two documents.
type RelationshipRequest struct {
	RelatedDocumentID string `json:"related_document_id" validate:"required"`
	RelationshipType  string `json:"relationship_type" validate:"required"`
	Notes             string `json:"notes" validate:"max=1000"`
}
