// Package scaffold turns an LLM-produced domain description into a
// file tree for a domain-driven design layout.
package scaffold

// Field is one attribute of an entity or value object
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// Entity is a domain entity definition
type Entity struct {
	Name    string   `json:"name"`
	Fields  []Field  `json:"fields,omitempty"`
	Methods []string `json:"methods,omitempty"`
}

// ValueObject is an immutable value type definition
type ValueObject struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// Repository is a persistence interface definition bound to an entity
type Repository struct {
	Name    string   `json:"name"`
	Entity  string   `json:"entity"`
	Methods []string `json:"methods,omitempty"`
}

// Service is a domain service definition
type Service struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
}

// Scaffold is a complete domain layout definition
type Scaffold struct {
	DomainName   string        `json:"domain_name"`
	Entities     []Entity      `json:"entities,omitempty"`
	ValueObjects []ValueObject `json:"value_objects,omitempty"`
	Repositories []Repository  `json:"repositories,omitempty"`
	Services     []Service     `json:"services,omitempty"`
}
