// Serviço de assinatura digital enveloped (XMLDSig) do padrão nacional de
// NFS-e. Insere o nó Signature como irmão imediato da tag assinada.

package signer

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"

	"github.com/besoft-tech/nfse-nacional/internal/domain"
	"github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

// XMLSignatureService implementa nfse.Signer para as tags infDPS e infPedReg.
type XMLSignatureService struct {
	keyStore KeyStore
}

// NewXMLSignatureService cria o serviço com a credencial já carregada.
func NewXMLSignatureService(ks KeyStore) *XMLSignatureService {
	return &XMLSignatureService{keyStore: ks}
}

// SignTag assina a tag indicada do XML (formato enveloped) conforme o padrão
// da Sefin Nacional e devolve o documento completo serializado com declaração
// XML. A subárvore assinada não é modificada; o nó Signature entra como irmão
// imediato dela.
func (s *XMLSignatureService) SignTag(xmlBytes []byte, tag string) ([]byte, error) {
	if s.keyStore == nil {
		return nil, fmt.Errorf("%w: serviço sem credencial", domain.ErrInvalidCredential)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}

	target, err := LocateTarget(doc, tag, NamespaceNFSe)
	if err != nil {
		return nil, err
	}
	parent := target.Element.Parent()
	if parent == nil {
		return nil, fmt.Errorf("%w: <%s> não pode ser a raiz do documento", domain.ErrMalformedXML, tag)
	}

	// Digest SHA-1 do elemento alvo canonicalizado
	canonicalTarget, err := Canonicalize(target.Element)
	if err != nil {
		return nil, err
	}
	targetDigest := sha1.Sum(canonicalTarget)
	digestB64 := base64.StdEncoding.EncodeToString(targetDigest[:])

	// Bloco Signature no namespace padrão xmldsig (sem prefixo ds:),
	// como serializado pelo validador de referência da Sefin.
	sig, signedInfo := buildSignature(target.ID, digestB64)

	// Canonicaliza SignedInfo (chamada independente, buffer próprio) e assina
	canonicalSignedInfo, err := Canonicalize(signedInfo)
	if err != nil {
		return nil, err
	}
	signedInfoDigest := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := s.keyStore.SignDigest(signedInfoDigest[:])
	if err != nil {
		return nil, err
	}

	sig.CreateElement("SignatureValue").SetText(base64.StdEncoding.EncodeToString(signatureValue))
	keyInfo := sig.CreateElement("KeyInfo")
	x509Data := keyInfo.CreateElement("X509Data")
	x509Data.CreateElement("X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(s.keyStore.CertificateDER()))

	// Splice: Signature como próximo irmão do elemento assinado
	parent.InsertChildAt(target.Element.Index()+1, sig)

	return serializeWithDeclaration(doc)
}

// buildSignature monta Signature/SignedInfo com a ordem exata de filhos do
// esquema xmldsig: CanonicalizationMethod, SignatureMethod, Reference
// (Transforms [enveloped, C14N], DigestMethod, DigestValue).
func buildSignature(id, digestB64 string) (sig, signedInfo *etree.Element) {
	sig = etree.NewElement("Signature")
	sig.CreateAttr("xmlns", NamespaceDS)

	signedInfo = sig.CreateElement("SignedInfo")
	signedInfo.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	signedInfo.CreateElement("SignatureMethod").CreateAttr("Algorithm", AlgRSASHA1)

	ref := signedInfo.CreateElement("Reference")
	ref.CreateAttr("URI", "#"+id)
	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", AlgC14N)
	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", AlgSHA1)
	ref.CreateElement("DigestValue").SetText(digestB64)

	return sig, signedInfo
}

// serializeWithDeclaration serializa o documento completo em UTF-8 com
// declaração XML, sem pretty-printing.
func serializeWithDeclaration(doc *etree.Document) ([]byte, error) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			return doc.WriteToBytes()
		}
	}
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	out.SetRoot(doc.Root())
	return out.WriteToBytes()
}

var _ nfse.Signer = (*XMLSignatureService)(nil)
