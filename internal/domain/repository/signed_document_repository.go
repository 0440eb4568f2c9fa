package repository

import (
	"context"

	"github.com/jhoicas/myinvois-signer/internal/domain/entity"
)

// SignedDocumentRepository define el puerto de persistencia para documentos firmados.
type SignedDocumentRepository interface {
	Create(ctx context.Context, doc *entity.SignedDocument) error
	// GetByID devuelve nil, nil si no existe o pertenece a otra empresa.
	GetByID(ctx context.Context, companyID, id string) (*entity.SignedDocument, error)
}
