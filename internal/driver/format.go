package driver

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// EntityDefinition is one class declaration in a mapping file.
type EntityDefinition struct {
	Class      string               `xml:"class,attr" yaml:"class" json:"class"`
	Object     string               `xml:"object,attr" yaml:"object" json:"object"`
	Properties []PropertyDefinition `xml:"property" yaml:"properties" json:"properties"`
	Strategies []StrategyDefinition `xml:"identification-strategies>strategy" yaml:"identification-strategies" json:"identification-strategies"`
}

// PropertyDefinition maps a local field to a remote field name.
type PropertyDefinition struct {
	Name  string `xml:"name,attr" yaml:"name" json:"name"`
	Field string `xml:"field,attr" yaml:"field" json:"field"`
}

// StrategyDefinition declares one identification strategy.
type StrategyDefinition struct {
	Class         string `xml:"class,attr" yaml:"class" json:"class"`
	Property      string `xml:"property,attr" yaml:"property" json:"property"`
	MatchingField string `xml:"matchingField,attr" yaml:"matchingField" json:"matchingField"`
}

// document is the root of a mapping file in every format.
type document struct {
	Entities []EntityDefinition `xml:"entity" yaml:"entities" json:"entities"`
}

// Format decodes one mapping file syntax.
type Format struct {
	// Name is the configuration key, e.g. "xml".
	Name string

	// Label prefixes parse failure messages, e.g. "XML".
	Label string

	// Suffix is appended to a class short name to form its file name.
	Suffix string

	// Decode parses file contents into entity definitions.
	Decode func(data []byte, filename string) ([]EntityDefinition, error)
}

// XML returns the default format: <ShortName>.mapping.xml.
//
//	<mapping>
//	  <entity class="Acme\Entity\Customer" object="Account">
//	    <property field="name" name="Name"/>
//	    <identification-strategies>
//	      <strategy class="mappingTable"/>
//	    </identification-strategies>
//	  </entity>
//	</mapping>
func XML() Format {
	return Format{Name: "xml", Label: "XML", Suffix: ".mapping.xml", Decode: decodeXML}
}

// YAML returns the YAML format: <ShortName>.mapping.yaml.
func YAML() Format {
	return Format{Name: "yaml", Label: "YAML", Suffix: ".mapping.yaml", Decode: decodeYAML}
}

// CUE returns the CUE format: <ShortName>.mapping.cue.
func CUE() Format {
	return Format{Name: "cue", Label: "CUE", Suffix: ".mapping.cue", Decode: decodeCUE}
}

// FormatByName returns the format registered under name.
func FormatByName(name string) (Format, error) {
	switch name {
	case "", "xml":
		return XML(), nil
	case "yaml", "yml":
		return YAML(), nil
	case "cue":
		return CUE(), nil
	default:
		return Format{}, fmt.Errorf("unknown mapping format %q: must be one of [xml yaml cue]", name)
	}
}

func decodeXML(data []byte, _ string) ([]EntityDefinition, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return doc.Entities, nil
}

// expectEOF consumes what follows the root element. Only comments,
// processing instructions and whitespace may remain.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("unexpected element <%s> after root element (line %d)", t.Name.Local, line(dec))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("unexpected text after root element (line %d)", line(dec))
			}
		case xml.EndElement:
			return fmt.Errorf("unexpected </%s> after root element (line %d)", t.Name.Local, line(dec))
		}
	}
}

func line(dec *xml.Decoder) int {
	l, _ := dec.InputPos()
	return l
}

func decodeYAML(data []byte, _ string) ([]EntityDefinition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Entities, nil
}

func decodeCUE(data []byte, filename string) ([]EntityDefinition, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, err
	}

	var doc document
	if err := value.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Entities, nil
}
