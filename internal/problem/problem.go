package problem

// Category groups hints by the quality aspect they check.
type Category string

const (
	CategoryAccessibility    Category = "accessibility"
	CategoryCompatibility    Category = "compatibility"
	CategoryDevelopment      Category = "development"
	CategoryInteroperability Category = "interoperability"
	CategoryOther            Category = "other"
	CategoryPerformance      Category = "performance"
	CategoryPWA              Category = "pwa"
	CategorySecurity         Category = "security"
)

// Location is a 0-based position inside a resource. -1 marks an unknown
// coordinate.
type Location struct {
	Line          int `json:"line"`
	Column        int `json:"column"`
	ElementLine   int `json:"element_line,omitempty"`
	ElementColumn int `json:"element_column,omitempty"`
}

// UnknownLocation is used when a problem cannot be tied to a position.
var UnknownLocation = Location{Line: -1, Column: -1}

// Problem is a single finding reported by a hint.
type Problem struct {
	Resource     string   `json:"resource"`
	HintID       string   `json:"hint_id"`
	Category     Category `json:"category"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Location     Location `json:"location"`
	SourceCode   string   `json:"source_code,omitempty"`
	CodeLanguage string   `json:"code_language,omitempty"`
}
