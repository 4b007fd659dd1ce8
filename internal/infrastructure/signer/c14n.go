// Canonicalização C14N 1.0 (inclusiva, sem comentários) de subárvores etree.

package signer

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/besoft-tech/nfse-nacional/internal/domain"
)

// Canonicalize serializa a subárvore como documento independente e aplica
// C14N 1.0 inclusiva sem comentários. O validador da Sefin recanonicaliza com
// exatamente esses parâmetros; usar C14N exclusiva ou manter comentários
// produz digest divergente.
//
// A mesma entrada produz sempre os mesmos bytes.
func Canonicalize(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(detachWithNamespaces(el))
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: serializar subárvore: %v", domain.ErrMalformedXML, err)
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar: %v", domain.ErrMalformedXML, err)
	}
	return out, nil
}

// detachWithNamespaces copia o elemento e acrescenta à cópia as declarações
// xmlns herdadas dos ancestrais que não são redeclaradas localmente. Sem isso
// a subárvore perderia o namespace padrão declarado na raiz do documento e o
// C14N do trecho isolado não corresponderia ao do documento completo.
func detachWithNamespaces(el *etree.Element) *etree.Element {
	cp := el.Copy()

	declared := map[string]bool{}
	for _, a := range cp.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		} else if a.Space == "" && a.Key == "xmlns" {
			declared[""] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			switch {
			case a.Space == "xmlns" && !declared[a.Key]:
				cp.CreateAttr("xmlns:"+a.Key, a.Value)
				declared[a.Key] = true
			case a.Space == "" && a.Key == "xmlns" && !declared[""]:
				cp.CreateAttr("xmlns", a.Value)
				declared[""] = true
			}
		}
	}
	return cp
}
