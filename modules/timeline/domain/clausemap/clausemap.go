// Package clausemap provides the read-only clause catalog: the externally
// supplied schema of anchors, deadline clauses, financial fields, and text
// fields for a contract form. The engine treats it as configuration data
// and receives it by injection, never through a process-wide singleton.
package clausemap

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Well-known anchor ids with special resolution rules.
const (
	AnchorBindingAgreementDate = "binding_agreement_date"
	AnchorClosingDate          = "closing_date"
)

// Offset parameter vocabulary.
const (
	OffsetKindCalendar = "calendar"
	OffsetKindBusiness = "business"
	DirectionBefore    = "before"
	DirectionAfter     = "after"
)

type AnchorMeta struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

type ClauseMeta struct {
	ID           string `yaml:"id" json:"id"`
	Section      string `yaml:"section" json:"section"`
	Label        string `yaml:"label" json:"label"`
	Trigger      string `yaml:"trigger" json:"trigger"`
	Direction    string `yaml:"direction" json:"direction"`
	ExpectedType string `yaml:"expected_type" json:"expected_type"`
	Category     string `yaml:"category" json:"category"`
}

type FieldMeta struct {
	ID      string `yaml:"id" json:"id"`
	Label   string `yaml:"label" json:"label"`
	Section string `yaml:"section" json:"section"`
}

type Catalog struct {
	Version         string       `yaml:"version" json:"version"`
	Form            string       `yaml:"form" json:"form"`
	Description     string       `yaml:"description" json:"description"`
	Anchors         []AnchorMeta `yaml:"anchors" json:"anchors"`
	Clauses         []ClauseMeta `yaml:"clauses" json:"clauses"`
	FinancialFields []FieldMeta  `yaml:"financial_fields" json:"financial_fields"`
	TextFields      []FieldMeta  `yaml:"text_fields" json:"text_fields"`

	anchorByID    map[string]AnchorMeta
	clauseByID    map[string]ClauseMeta
	financialByID map[string]FieldMeta
	textByID      map[string]FieldMeta
}

//go:embed rf401.yaml
var rf401YAML []byte

// Default returns the embedded RF401 catalog. The embedded document is
// validated by tests, so a parse failure here is a build defect.
func Default() *Catalog {
	c, err := ParseCatalogYAML(rf401YAML)
	if err != nil {
		panic(fmt.Sprintf("clausemap: embedded catalog invalid: %v", err))
	}
	return c
}

func ParseCatalogYAML(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.Version == "" {
		return nil, errors.New("clausemap: missing version")
	}
	if c.Form == "" {
		return nil, errors.New("clausemap: missing form")
	}
	if err := c.buildIndexes(); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalogYAML(b)
}

func (c *Catalog) buildIndexes() error {
	c.anchorByID = make(map[string]AnchorMeta, len(c.Anchors))
	for _, a := range c.Anchors {
		if a.ID == "" {
			return errors.New("clausemap: anchor with empty id")
		}
		if _, dup := c.anchorByID[a.ID]; dup {
			return fmt.Errorf("clausemap: duplicate anchor id %q", a.ID)
		}
		c.anchorByID[a.ID] = a
	}
	c.clauseByID = make(map[string]ClauseMeta, len(c.Clauses))
	for _, cl := range c.Clauses {
		if cl.ID == "" {
			return errors.New("clausemap: clause with empty id")
		}
		if _, dup := c.clauseByID[cl.ID]; dup {
			return fmt.Errorf("clausemap: duplicate clause id %q", cl.ID)
		}
		c.clauseByID[cl.ID] = cl
	}
	c.financialByID = make(map[string]FieldMeta, len(c.FinancialFields))
	for _, f := range c.FinancialFields {
		if f.ID == "" {
			return errors.New("clausemap: financial field with empty id")
		}
		if _, dup := c.financialByID[f.ID]; dup {
			return fmt.Errorf("clausemap: duplicate financial field id %q", f.ID)
		}
		c.financialByID[f.ID] = f
	}
	c.textByID = make(map[string]FieldMeta, len(c.TextFields))
	for _, f := range c.TextFields {
		if f.ID == "" {
			return errors.New("clausemap: text field with empty id")
		}
		if _, dup := c.textByID[f.ID]; dup {
			return fmt.Errorf("clausemap: duplicate text field id %q", f.ID)
		}
		c.textByID[f.ID] = f
	}
	return nil
}

// Anchor resolves anchor metadata by id; the zero value when absent.
func (c *Catalog) Anchor(id string) (AnchorMeta, bool) {
	a, ok := c.anchorByID[id]
	return a, ok
}

// Clause resolves clause metadata by id; the zero value when absent.
func (c *Catalog) Clause(id string) (ClauseMeta, bool) {
	cl, ok := c.clauseByID[id]
	return cl, ok
}

func (c *Catalog) FinancialField(id string) (FieldMeta, bool) {
	f, ok := c.financialByID[id]
	return f, ok
}

func (c *Catalog) TextField(id string) (FieldMeta, bool) {
	f, ok := c.textByID[id]
	return f, ok
}
