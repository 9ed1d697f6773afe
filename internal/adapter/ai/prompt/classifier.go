// Package prompt composes role-tagged conversations for the four AI
// operations and classifies companies into coarse archetypes that steer
// prompt content.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/prepforge/prepai/internal/domain"
)

// Classifier maps a (company, job description) pair to an archetype
// label. It is pluggable so the keyword lists can evolve without
// touching the pipeline.
type Classifier interface {
	Classify(company, description string) string
}

// KeywordLists is the data behind the default classifier. Company names
// match against the company field; phrases match against the job
// description. All matching is case-insensitive substring matching.
type KeywordLists struct {
	ProductCompanies []string `yaml:"product_companies"`
	ProductPhrases   []string `yaml:"product_phrases"`
	ServiceCompanies []string `yaml:"service_companies"`
	ServicePhrases   []string `yaml:"service_phrases"`
	StartupPhrases   []string `yaml:"startup_phrases"`
}

// defaultLists mirrors the classic hard-coded keyword sets.
func defaultLists() KeywordLists {
	return KeywordLists{
		ProductCompanies: []string{"google", "microsoft", "apple", "amazon", "meta", "facebook", "netflix", "uber", "airbnb"},
		ProductPhrases:   []string{"product development", "product team"},
		ServiceCompanies: []string{"tcs", "infosys", "wipro", "accenture", "cognizant", "capgemini"},
		ServicePhrases:   []string{"client", "consulting", "outsourcing"},
		StartupPhrases:   []string{"startup", "fast-paced", "early stage", "seed", "series a", "series b"},
	}
}

// KeywordClassifier is the default Classifier. Order of checks matters:
// product beats service beats startup, and anything unmatched defaults
// to Product-based.
type KeywordClassifier struct {
	lists KeywordLists
}

// NewKeywordClassifier returns a classifier over the built-in lists.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{lists: defaultLists()}
}

// NewKeywordClassifierFromLists returns a classifier over custom lists.
// Empty list fields fall back to the built-in ones.
func NewKeywordClassifierFromLists(lists KeywordLists) *KeywordClassifier {
	def := defaultLists()
	if len(lists.ProductCompanies) == 0 {
		lists.ProductCompanies = def.ProductCompanies
	}
	if len(lists.ProductPhrases) == 0 {
		lists.ProductPhrases = def.ProductPhrases
	}
	if len(lists.ServiceCompanies) == 0 {
		lists.ServiceCompanies = def.ServiceCompanies
	}
	if len(lists.ServicePhrases) == 0 {
		lists.ServicePhrases = def.ServicePhrases
	}
	if len(lists.StartupPhrases) == 0 {
		lists.StartupPhrases = def.StartupPhrases
	}
	return &KeywordClassifier{lists: lists}
}

// LoadKeywordClassifier reads a YAML keyword-list file. An empty path
// returns the built-in classifier.
func LoadKeywordClassifier(path string) (*KeywordClassifier, error) {
	if path == "" {
		return NewKeywordClassifier(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=prompt.LoadKeywordClassifier: %w", err)
	}
	var lists KeywordLists
	if err := yaml.Unmarshal(b, &lists); err != nil {
		return nil, fmt.Errorf("op=prompt.LoadKeywordClassifier: %w", err)
	}
	return NewKeywordClassifierFromLists(lists), nil
}

// Classify returns the archetype for a company and job description.
func (c *KeywordClassifier) Classify(company, description string) string {
	companyLower := strings.ToLower(company)
	descLower := strings.ToLower(description)

	if containsAny(companyLower, c.lists.ProductCompanies) || containsAny(descLower, c.lists.ProductPhrases) {
		return domain.ArchetypeProduct
	}
	if containsAny(companyLower, c.lists.ServiceCompanies) || containsAny(descLower, c.lists.ServicePhrases) {
		return domain.ArchetypeService
	}
	if containsAny(descLower, c.lists.StartupPhrases) {
		return domain.ArchetypeStartup
	}
	return domain.ArchetypeProduct
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
