// Localização do elemento a assinar (tag + namespace + atributo Id).

package signer

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/besoft-tech/nfse-nacional/internal/domain"
)

// TargetRef referencia o elemento localizado e o valor do seu atributo Id,
// que ancora a Reference da assinatura.
type TargetRef struct {
	Element *etree.Element
	ID      string
}

// LocateTarget procura o primeiro elemento {namespace}tag em ordem de
// documento. O esquema nacional prevê uma única ocorrência; havendo mais de
// uma, a primeira é escolhida de forma determinística.
func LocateTarget(doc *etree.Document, tag, namespace string) (*TargetRef, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sem elemento raiz", domain.ErrMalformedXML)
	}
	el := findFirst(root, tag, namespace)
	if el == nil {
		return nil, fmt.Errorf("%w: <%s> (namespace %s)", domain.ErrElementNotFound, tag, namespace)
	}
	id := el.SelectAttrValue("Id", "")
	if id == "" {
		return nil, fmt.Errorf("%w: <%s>", domain.ErrMissingSignatureID, tag)
	}
	return &TargetRef{Element: el, ID: id}, nil
}

func findFirst(el *etree.Element, tag, namespace string) *etree.Element {
	if el.Tag == tag && el.NamespaceURI() == namespace {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findFirst(child, tag, namespace); found != nil {
			return found
		}
	}
	return nil
}
