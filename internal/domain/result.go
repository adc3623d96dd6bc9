package domain

// ResultItem is one offer as returned by the backend search. Fields are read
// loosely; nothing about its shape is enforced.
type ResultItem map[string]any

// Mode is the inferred intent of a search.
type Mode string

const (
	ModeProduct Mode = "product"
	ModeService Mode = "service"
)

// ProcessInput is the input of the vitrin ranking core
type ProcessInput struct {
	Query   string       `json:"query"`
	Results []ResultItem `json:"results"`
}

// ProcessOutput is what the vitrin ranking core hands back for display.
// Mode is empty when processing degraded to the unmodified input.
type ProcessOutput struct {
	Query   string       `json:"query"`
	Results []ResultItem `json:"results"`
	Mode    Mode         `json:"mode,omitempty"`
}

// KeywordTable holds every keyword list used by the ranking core
type KeywordTable struct {
	// FillerPhrases are removed from free-text queries (whole words, may span several words)
	FillerPhrases []string `json:"fillerPhrases" yaml:"filler_phrases"`

	// ProviderTokens mark a provider as an e-commerce / retail source
	ProviderTokens []string `json:"providerTokens" yaml:"provider_tokens"`

	// ProductCategories mark a category/type/vertical as a physical product
	ProductCategories []string `json:"productCategories" yaml:"product_categories"`

	// HintProduct and HintService classify the persisted category hint
	HintProduct []string `json:"hintProduct" yaml:"hint_product"`
	HintService []string `json:"hintService" yaml:"hint_service"`

	// QueryService are query words (prefix matched) that always mean a service search
	QueryService []string `json:"queryService" yaml:"query_service"`

	// ProductMajority is the share of hard products at which a search becomes product mode
	ProductMajority float64 `json:"productMajority" yaml:"product_majority"`
}
