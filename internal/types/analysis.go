package types

// ResumeAnalysis is the structured result of analyzing a resume against a
// target role.
type ResumeAnalysis struct {
	MatchScore  int      `json:"match_score"`
	Strengths   []string `json:"strengths"`
	Gaps        []string `json:"gaps"`
	Suggestions []string `json:"suggestions"`
	Summary     string   `json:"summary"`
}

// AnalyzeResumeRequest represents the request to analyze a resume.
type AnalyzeResumeRequest struct {
	ResumeText string `json:"resume_text" validate:"required,min=1"`
	TargetRole string `json:"target_role" validate:"required,min=1"`
}
