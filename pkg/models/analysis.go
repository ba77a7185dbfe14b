package models

const (
	VerdictApproved    = "approved"
	VerdictNotApproved = "not_approved"
)

// AnalysisResult is the outcome of comparing rendered images against
// reference imagery. Scores, when present, are 0-100 similarity values
// keyed by dimension (e.g. "geometry", "texture", "overall").
type AnalysisResult struct {
	Differences []Difference       `json:"differences"`
	Summary     string             `json:"summary"`
	Verdict     string             `json:"verdict"`
	Scores      map[string]float64 `json:"scores,omitempty"`
}

// Difference is one discrepancy between a rendered image and a reference
// image, located by a pixel region in the rendered image.
type Difference struct {
	RenderedIndex  int      `json:"rendered_index"`
	ReferenceIndex int      `json:"reference_index"`
	Issues         []string `json:"issues"`
	BBox           BBox     `json:"bbox"`
	Severity       string   `json:"severity"`
}

// BBox is a pixel region: origin top-left, width/height in pixels.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ComparisonRequest is the input to a vision provider: the rendered images,
// the supplied references, and the model statistics from the render stage.
type ComparisonRequest struct {
	ArticleID   string      `json:"article_id"`
	ProductName string      `json:"product_name"`
	Images      []string    `json:"images"`
	References  []string    `json:"references"`
	ModelStats  *ModelStats `json:"model_stats,omitempty"`
}
