package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

type relationshipStore interface {
	CreatePair(ctx context.Context, edge, reverse *models.RelatedDocument) error
	Exists(ctx context.Context, documentID, relatedID string, relType models.RelationshipType) (bool, error)
	GetByID(ctx context.Context, id string) (*models.RelatedDocument, error)
	ListByDocument(ctx context.Context, documentID string, relType models.RelationshipType) ([]models.RelationshipView, error)
	DeletePair(ctx context.Context, edge *models.RelatedDocument, reverseType models.RelationshipType) (int64, error)
	Statistics(ctx context.Context) ([]models.RelationshipCount, error)
}

type documentLookup interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// RelationshipService links documents with typed, mirrored edges.
type RelationshipService struct {
	repo      relationshipStore
	documents documentLookup
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRelationshipService constructs a RelationshipService.
func NewRelationshipService(repo relationshipStore, documents documentLookup, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *RelationshipService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipService{repo: repo, documents: documents, audit: audit, validator: validate, logger: logger}
}

// Add links documentID to the related document and creates the mirrored edge.
func (s *RelationshipService) Add(ctx context.Context, actor models.Actor, documentID string, req dto.RelationshipRequest) (*models.RelatedDocument, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid relationship payload")
	}
	relType := models.RelationshipType(req.RelationshipType)
	reverseType, ok := relType.Reverse()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown relationship type %q", req.RelationshipType))
	}
	if documentID == req.RelatedDocumentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Document cannot be related to itself")
	}
	if _, err := loadVisible(ctx, s.documents, actor, documentID); err != nil {
		return nil, err
	}
	if _, err := loadVisible(ctx, s.documents, actor, req.RelatedDocumentID); err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "related document not found")
		}
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, documentID, req.RelatedDocumentID, relType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check relationship")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Relationship already exists")
	}

	notes := strings.TrimSpace(req.Notes)
	edge := &models.RelatedDocument{
		DocumentID:        documentID,
		RelatedDocumentID: req.RelatedDocumentID,
		RelationshipType:  relType,
		Notes:             notes,
		CreatedBy:         actor.UserID,
	}
	reverseNotes := "Reverse relationship"
	if notes != "" {
		reverseNotes = "Reverse of: " + notes
	}
	reverse := &models.RelatedDocument{
		DocumentID:        req.RelatedDocumentID,
		RelatedDocumentID: documentID,
		RelationshipType:  reverseType,
		Notes:             reverseNotes,
		CreatedBy:         actor.UserID,
	}
	if err := s.repo.CreatePair(ctx, edge, reverse); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create relationship")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditRelationCreated,
		DocumentID: &edge.DocumentID,
		Details:    fmt.Sprintf("Relationship '%s' created with document %s", relType, edge.RelatedDocumentID),
	})
	return edge, nil
}

// List returns the outgoing edges of a document, optionally of one type.
// Related documents the actor may not see are left out.
func (s *RelationshipService) List(ctx context.Context, actor models.Actor, documentID, relType string) ([]models.RelationshipView, error) {
	if relType != "" && !models.RelationshipType(relType).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown relationship type %q", relType))
	}
	if _, err := loadVisible(ctx, s.documents, actor, documentID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByDocument(ctx, documentID, models.RelationshipType(relType))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list relationships")
	}
	visible := make([]models.RelationshipView, 0, len(items))
	for _, item := range items {
		if actor.CanView(item.RelatedAccessLevel, item.RelatedCreatedBy) {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

// Remove deletes an edge and its mirror.
func (s *RelationshipService) Remove(ctx context.Context, actor models.Actor, id string) error {
	if err := requireWriter(actor); err != nil {
		return err
	}
	edge, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "relationship not found", "failed to load relationship")
	}
	if _, err := loadVisible(ctx, s.documents, actor, edge.DocumentID); err != nil {
		return err
	}
	if _, err := loadVisible(ctx, s.documents, actor, edge.RelatedDocumentID); err != nil {
		return err
	}
	reverseType, _ := edge.RelationshipType.Reverse()
	if _, err := s.repo.DeletePair(ctx, edge, reverseType); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete relationship")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditRelationDeleted,
		DocumentID: &edge.DocumentID,
		Details:    fmt.Sprintf("Relationship '%s' with document %s deleted", edge.RelationshipType, edge.RelatedDocumentID),
	})
	return nil
}

// Statistics counts edges per relationship type.
func (s *RelationshipService) Statistics(ctx context.Context) ([]models.RelationshipCount, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load relationship statistics")
	}
	return stats, nil
}
