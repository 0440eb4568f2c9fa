// Orquestador de firma: carga una sola vez cadena y llave, y firma documentos JSON o XML.

package signer

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/myinvois-signer/internal/domain/document"
)

// State etapa de inicialización del orquestador.
type State int32

const (
	StateUnloaded State = iota
	StateCertsLoaded
	StateKeyLoaded
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateCertsLoaded:
		return "certs_loaded"
	case StateKeyLoaded:
		return "key_loaded"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Credentials material de firma en memoria. PKCS12, si viene, aporta la llave
// (y la cadena cuando no hay CertificatePEM).
type Credentials struct {
	CertificatePEM []byte
	KeyPEM         []byte
	PKCS12         []byte
	Passphrase     string
}

// CredentialSource origen del material de firma.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// FileCredentials lee el material de firma de disco.
type FileCredentials struct {
	CertificatePath string
	KeyPath         string
	PKCS12Path      string
	Passphrase      string
}

// Credentials lee los archivos configurados.
func (f FileCredentials) Credentials(ctx context.Context) (Credentials, error) {
	c := Credentials{Passphrase: f.Passphrase}
	read := func(path string) ([]byte, error) {
		if path == "" {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("signer: leer %s: %w", path, err)
		}
		return data, nil
	}
	var err error
	if c.CertificatePEM, err = read(f.CertificatePath); err != nil {
		return Credentials{}, err
	}
	if c.KeyPEM, err = read(f.KeyPath); err != nil {
		return Credentials{}, err
	}
	if c.PKCS12, err = read(f.PKCS12Path); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// StaticCredentials material ya cargado (tests, secretos inyectados).
type StaticCredentials Credentials

// Credentials devuelve el material tal cual.
func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// Option configura el orquestador.
type Option func(*Orchestrator)

// WithLogger logger del componente.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock reloj para la validación de vigencia y el SigningTime.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator coordina cadena, llave, canonicalización y ensamblado de la firma.
// Tras Initialize la cadena y la llave son de sólo lectura y Sign es seguro en paralelo.
type Orchestrator struct {
	source CredentialSource
	log    zerolog.Logger
	now    func() time.Time

	state atomic.Int32
	group singleflight.Group

	// escritos antes de publicar StateReady / StateFailed
	chain   *CertificateChain
	key     *SigningKey
	meta    CertificateMetadata
	initErr error
}

// NewOrchestrator crea el orquestador sin cargar nada.
func NewOrchestrator(source CredentialSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State etapa actual.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Initialize carga y valida el material de firma una sola vez. Llamadas concurrentes esperan
// a la primera, cuyo contexto gobierna la carga. Un fallo es definitivo: se devuelve el mismo
// error en adelante y hay que construir otro orquestador.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	switch o.State() {
	case StateReady:
		return nil
	case StateFailed:
		return o.initErr
	}
	_, err, _ := o.group.Do("init", func() (any, error) {
		switch o.State() {
		case StateReady:
			return nil, nil
		case StateFailed:
			return nil, o.initErr
		}
		if err := o.load(ctx); err != nil {
			o.initErr = err
			o.state.Store(int32(StateFailed))
			o.log.Error().Err(err).Msg("inicialización del firmador fallida")
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (o *Orchestrator) load(ctx context.Context) error {
	creds, err := o.source.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("signer: credenciales: %w", err)
	}
	at := o.now()

	var chain *CertificateChain
	if len(creds.CertificatePEM) > 0 {
		if chain, err = ParseCertificateChain(creds.CertificatePEM, at); err != nil {
			return err
		}
		o.state.Store(int32(StateCertsLoaded))
		o.log.Info().Int("certificados", chain.Len()).
			Str("firmante", chain.SigningCertificate().Subject).
			Msg("cadena de certificados cargada")
	}

	var key *SigningKey
	switch {
	case len(creds.PKCS12) > 0:
		k, leaf, err := LoadPKCS12(creds.PKCS12, creds.Passphrase)
		if err != nil {
			return err
		}
		if chain == nil {
			if chain, err = newChainFromX509(at, leaf); err != nil {
				return err
			}
			o.state.Store(int32(StateCertsLoaded))
			o.log.Info().Str("firmante", chain.SigningCertificate().Subject).
				Msg("certificado firmante tomado del PKCS#12")
		}
		key = k
	case len(creds.KeyPEM) > 0:
		if key, err = LoadSigningKey(creds.KeyPEM, creds.Passphrase); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: no hay llave privada configurada", ErrPassphrase)
	}
	if chain == nil {
		return fmt.Errorf("%w: no hay certificados configurados", ErrParse)
	}
	o.state.Store(int32(StateKeyLoaded))
	o.log.Info().Msg("llave privada cargada")

	if !key.Matches(chain.X509()) {
		return ErrKeyMismatch
	}

	o.chain = chain
	o.key = key
	o.meta = chain.Metadata()
	o.state.Store(int32(StateReady))
	o.log.Info().Str("serial", o.meta.SerialNumber).Msg("firmador listo")
	return nil
}

func (o *Orchestrator) ready() error {
	if o.State() != StateReady {
		return ErrNotInitialized
	}
	return nil
}

// Sign firma un documento JSON-UBL. Cada llamada genera SignedProperties y firma nuevas,
// aunque el documento ya se haya firmado antes.
func (o *Orchestrator) Sign(doc document.Document) (*SignedDocument, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	canonical, err := Canonicalize(doc)
	if err != nil {
		return nil, err
	}
	env, err := o.envelope(canonical, func(sp SignedProperties) (string, error) {
		b, err := CanonicalizeValue(qualifying(sp))
		if err != nil {
			return "", err
		}
		return Digest(b), nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Debug().Str("documento", doc.Identifier()).Str("digest", env.DocumentDigest).Msg("documento firmado")
	return &SignedDocument{Document: doc, Envelope: env}, nil
}

// SignXML firma un documento UBL en XML y devuelve el XML con la firma inyectada.
func (o *Orchestrator) SignXML(data []byte) ([]byte, *SignatureEnvelope, error) {
	if err := o.ready(); err != nil {
		return nil, nil, err
	}
	canonical, err := CanonicalizeXML(data)
	if err != nil {
		return nil, nil, err
	}
	// la firma se inyecta antes del digest de SignedProperties: el nodo se canonicaliza con
	// los namespaces que hereda en el documento final
	var tree *xmlSignature
	env, err := o.envelope(canonical, func(sp SignedProperties) (string, error) {
		s, err := injectXMLSignature(data, Assemble("", "", sp, "", o.meta))
		if err != nil {
			return "", err
		}
		tree = s
		return s.signedPropertiesDigest()
	})
	if err != nil {
		return nil, nil, err
	}
	tree.complete(env)
	signed, err := tree.bytes()
	if err != nil {
		return nil, nil, err
	}
	o.log.Debug().Str("digest", env.DocumentDigest).Msg("documento XML firmado")
	return signed, &env, nil
}

// envelope pasos comunes: digest del documento, firma, propiedades firmadas y ensamblado.
func (o *Orchestrator) envelope(canonical []byte, spDigest func(SignedProperties) (string, error)) (SignatureEnvelope, error) {
	docDigest := Digest(canonical)
	sig, err := o.key.Sign(canonical)
	if err != nil {
		return SignatureEnvelope{}, err
	}
	sp := NewSignedProperties(o.now(), o.chain.SigningCertificate())
	spd, err := spDigest(sp)
	if err != nil {
		return SignatureEnvelope{}, err
	}
	return Assemble(base64.StdEncoding.EncodeToString(sig), docDigest, sp, spd, o.meta), nil
}

// SignBatch firma varios documentos en paralelo. El resultado conserva el orden de entrada;
// el primer error cancela el resto.
func (o *Orchestrator) SignBatch(ctx context.Context, docs []document.Document) ([]*SignedDocument, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	out := make([]*SignedDocument, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			signed, err := o.Sign(doc)
			if err != nil {
				return fmt.Errorf("signer: documento %d (%s): %w", i, doc.Identifier(), err)
			}
			out[i] = signed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Chain cadena cargada.
func (o *Orchestrator) Chain() (*CertificateChain, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	return o.chain, nil
}

// CertificateDetails resumen de vigencia de la cadena respecto de now.
func (o *Orchestrator) CertificateDetails(now time.Time) (ChainDetails, error) {
	if err := o.ready(); err != nil {
		return ChainDetails{}, err
	}
	return o.chain.Details(now), nil
}
