package catalog

import (
	"fmt"
	"strings"
)

// Product is one chemical record in the catalog. JSON names match the
// payload the browser client has always stored.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Formula     string `json:"formula"`
	CASNumber   string `json:"casNumber"`
	Description string `json:"description"`
	SafetyInfo  string `json:"safetyInfo"`
	ImageURL    string `json:"imageUrl"`
}

const imageURLPattern = "https://picsum.photos/seed/%s/400/300"

// DefaultImageURL returns the placeholder image assigned to a new record.
func DefaultImageURL(name string) string {
	return fmt.Sprintf(imageURLPattern, strings.Join(strings.Fields(name), ""))
}

func (p Product) matches(q string) bool {
	for _, f := range []string{p.Name, p.Formula, p.CASNumber} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// seedProducts is written on first use when the slot holds nothing.
func seedProducts() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Sodium Chloride",
			Formula:     "NaCl",
			CASNumber:   "7647-14-5",
			Description: "A common salt, an ionic compound with the chemical formula NaCl, representing a 1:1 ratio of sodium and chloride ions. It is responsible for the salinity of seawater and of the extracellular fluid of many multicellular organisms.",
			SafetyInfo:  "* Generally recognized as safe (GRAS). * Excessive consumption can lead to hypernatremia. * Avoid contact with eyes.",
			ImageURL:    "https://picsum.photos/seed/nacl/400/300",
		},
		{
			ID:          "2",
			Name:        "Ethanol",
			Formula:     "C2H5OH",
			CASNumber:   "64-17-5",
			Description: "A simple alcohol with the chemical formula C2H5OH. It is a volatile, flammable, colorless liquid with a characteristic wine-like odor and pungent taste. It is used as an antiseptic, a solvent, and a fuel.",
			SafetyInfo:  "* Highly flammable. Keep away from heat and open flames. * Causes serious eye irritation. * May cause drowsiness or dizziness.",
			ImageURL:    "https://picsum.photos/seed/ethanol/400/300",
		},
	}
}
