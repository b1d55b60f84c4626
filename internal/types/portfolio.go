package types

// PortfolioProject is one showcased project extracted from resume text.
type PortfolioProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tech        []string `json:"tech,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// PortfolioProfile is a generated portfolio page model.
type PortfolioProfile struct {
	Headline string             `json:"headline"`
	About    string             `json:"about"`
	Skills   []string           `json:"skills"`
	Projects []PortfolioProject `json:"projects"`
}

// GeneratePortfolioRequest represents the request to generate a portfolio
// profile from resume text.
type GeneratePortfolioRequest struct {
	ResumeText string `json:"resume_text" validate:"required,min=1"`
}
