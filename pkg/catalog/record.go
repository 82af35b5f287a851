package catalog

import (
	"fmt"
	"strings"
)

// Record is one catalog row after normalization.
type Record struct {
	SKU            string    `json:"sku" yaml:"sku"`
	PCode          string    `json:"p_code,omitempty" yaml:"p_code,omitempty"`
	DCode          string    `json:"d_code,omitempty" yaml:"d_code,omitempty"`
	Name           string    `json:"name" yaml:"name"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category       Category  `json:"category" yaml:"category"`
	Amp            Amp       `json:"amp,omitempty" yaml:"amp,omitempty"`
	System         System    `json:"system,omitempty" yaml:"system,omitempty"`
	HandRobot      HandRobot `json:"hand_robot,omitempty" yaml:"hand_robot,omitempty"`
	CompatibleWith []string  `json:"compatible_with,omitempty" yaml:"compatible_with,omitempty"`
	Images         []string  `json:"images,omitempty" yaml:"images,omitempty"`
	Link           string    `json:"link,omitempty" yaml:"link,omitempty"`
	Stock          *int      `json:"stock,omitempty" yaml:"stock,omitempty"`
}

// Title is the one-line product label used in cards and logs.
func (r Record) Title() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.SKU != "" {
		b.WriteString(fmt.Sprintf(" (Mã Tokin %s)", r.SKU))
	}
	return strings.TrimSpace(b.String())
}

// FirstImage returns the first image URL, or "".
func (r Record) FirstImage() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}

// ListsCompatible reports whether sku is in the record's compatibility refs.
func (r Record) ListsCompatible(sku string) bool {
	for _, ref := range r.CompatibleWith {
		if ref == sku {
			return true
		}
	}
	return false
}
