package signing

import (
	"context"
	"time"

	"github.com/jhoicas/myinvois-signer/internal/domain/document"
	"github.com/jhoicas/myinvois-signer/internal/domain/repository"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
)

// Signer puerto de firma. Lo implementa *signer.Orchestrator ya inicializado.
type Signer interface {
	Sign(doc document.Document) (*signer.SignedDocument, error)
	SignBatch(ctx context.Context, docs []document.Document) ([]*signer.SignedDocument, error)
	SignXML(data []byte) ([]byte, *signer.SignatureEnvelope, error)
	CertificateDetails(now time.Time) (signer.ChainDetails, error)
}

var _ Signer = (*signer.Orchestrator)(nil)

// TxRunner ejecuta fn con un repositorio atado a una transacción: todo o nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(repo repository.SignedDocumentRepository) error) error
}
