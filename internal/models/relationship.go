package models

import "time"

// RelationshipType names a directed link between two documents.
type RelationshipType string

const (
	RelSupersedes   RelationshipType = "Supersedes"
	RelSupersededBy RelationshipType = "Superseded By"
	RelReferences   RelationshipType = "References"
	RelReferencedBy RelationshipType = "Referenced By"
	RelPartOf       RelationshipType = "Part Of"
	RelContains     RelationshipType = "Contains"
	RelVersionOf    RelationshipType = "Version Of"
	RelOriginalOf   RelationshipType = "Original Of"
	RelAmends       RelationshipType = "Amends"
	RelAmendedBy    RelationshipType = "Amended By"
	RelRelatedTo    RelationshipType = "Related To"
)

var reverseRelationships = map[RelationshipType]RelationshipType{
	RelSupersedes:   RelSupersededBy,
	RelSupersededBy: RelSupersedes,
	RelReferences:   RelReferencedBy,
	RelReferencedBy: RelReferences,
	RelPartOf:       RelContains,
	RelContains:     RelPartOf,
	RelVersionOf:    RelOriginalOf,
	RelOriginalOf:   RelVersionOf,
	RelAmends:       RelAmendedBy,
	RelAmendedBy:    RelAmends,
	RelRelatedTo:    RelRelatedTo,
}

// Reverse returns the type of the mirrored edge.
func (t RelationshipType) Reverse() (RelationshipType, bool) {
	r, ok := reverseRelationships[t]
	return r, ok
}

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	_, ok := reverseRelationships[t]
	return ok
}

// RelatedDocument is a stored edge.
type RelatedDocument struct {
	ID                string           `db:"id" json:"id"`
	DocumentID        string           `db:"document_id" json:"document_id"`
	RelatedDocumentID string           `db:"related_document_id" json:"related_document_id"`
	RelationshipType  RelationshipType `db:"relationship_type" json:"relationship_type"`
	Notes             string           `db:"notes" json:"notes"`
	CreatedBy         string           `db:"created_by" json:"created_by"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}

// RelationshipView is an edge joined with the related document summary.
type RelationshipView struct {
	RelatedDocument
	RelatedDocumentCode string         `db:"related_document_code" json:"related_document_code"`
	RelatedTitle        string         `db:"related_title" json:"related_title"`
	RelatedStatus       DocumentStatus `db:"related_status" json:"related_status"`
	RelatedAccessLevel  AccessLevel    `db:"related_access_level" json:"related_access_level"`
	RelatedCreatedBy    string         `db:"related_created_by" json:"-"`
}

// RelationshipCount is a per-type tally.
type RelationshipCount struct {
	RelationshipType RelationshipType `db:"relationship_type" json:"relationship_type"`
	Count            int              `db:"count" json:"count"`
}
