package types

import "strings"

// ResourceType classifies a learning resource. The set is closed; anything the
// model returns outside it is coerced to ResourceOther during generation.
type ResourceType string

// Resource types
const (
	ResourceVideo         ResourceType = "video"
	ResourceArticle       ResourceType = "article"
	ResourceDocumentation ResourceType = "documentation"
	ResourceCourse        ResourceType = "course"
	ResourceTool          ResourceType = "tool"
	ResourceOther         ResourceType = "other"
)

// ValidResourceType reports whether t belongs to the closed resource enum.
func ValidResourceType(t ResourceType) bool {
	switch t {
	case ResourceVideo, ResourceArticle, ResourceDocumentation, ResourceCourse, ResourceTool, ResourceOther:
		return true
	}
	return false
}

// NormalizeResourceType lowercases and coerces unknown values to "other".
func NormalizeResourceType(raw string) ResourceType {
	t := ResourceType(strings.ToLower(strings.TrimSpace(raw)))
	if ValidResourceType(t) {
		return t
	}
	return ResourceOther
}

// Resource is a single learning resource attached to a roadmap step.
type Resource struct {
	Title string       `json:"title"`
	URL   string       `json:"url"`
	Type  ResourceType `json:"type"`
}

// Step is one stage of a learning roadmap.
type Step struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Resources   []Resource `json:"resources"`
}

// Roadmap is a structured learning plan produced wholesale from one AI call
// and treated as an immutable value once returned. Steps is always non-empty.
type Roadmap struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// GenerateRoadmapRequest represents the request to generate a roadmap from a
// topic, or from resume text when Topic is empty and ResumeText is set.
type GenerateRoadmapRequest struct {
	Topic      string `json:"topic,omitempty"`
	Level      string `json:"level,omitempty"`
	Timeline   string `json:"timeline,omitempty"`
	ResumeText string `json:"resume_text,omitempty"`
}

// RoadmapProgressRequest marks a roadmap step completed or not.
type RoadmapProgressRequest struct {
	StepIndex int  `json:"step_index" validate:"min=0"`
	Completed bool `json:"completed"`
}
