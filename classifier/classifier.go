package classifier

import (
	"context"
	"fmt"
	"strings"

	"issue-guardian/config"
	"issue-guardian/vectorstore"
)

// Modality identifies what kind of content one analysis covers.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
	ModalityVideo Modality = "VIDEO"
)

// Tier is the three-level moderation outcome.
type Tier string

const (
	TierGreen  Tier = "GREEN"
	TierYellow Tier = "YELLOW"
	TierRed    Tier = "RED"
)

// ScoreToTier maps a moderation score onto a tier.
// RED at 0.8 and above, YELLOW at 0.3 and above, GREEN below that.
func ScoreToTier(score float64) Tier {
	switch {
	case score >= 0.8:
		return TierRed
	case score >= 0.3:
		return TierYellow
	default:
		return TierGreen
	}
}

// Request is the immutable input to one classification run.
type Request struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Videos      []string `json:"videos"`
}

// AnalysisResult is the outcome for one analyzed item.
type AnalysisResult struct {
	Modality  Modality       `json:"modality"`
	Score     float64        `json:"score"`
	Tier      Tier           `json:"tier"`
	Details   map[string]any `json:"details,omitempty"`
	Embedding []float32      `json:"-"`
}

// ImageEmbedding pairs an image reference with its feature vector.
type ImageEmbedding struct {
	URL    string
	Vector []float32
}

// ClassificationResult aggregates all per-item results for one request.
type ClassificationResult struct {
	Items           []AnalysisResult    `json:"items"`
	TextEmbedding   []float32           `json:"-"`
	ImageEmbeddings []ImageEmbedding    `json:"-"`
	Duplicate       *vectorstore.Match  `json:"duplicate,omitempty"`
	SimilarCases    []vectorstore.Match `json:"similar_cases,omitempty"`
	Signals         []float64           `json:"signals"`
	Score           float64             `json:"score"`
	Tier            Tier                `json:"tier"`
	Reason          string              `json:"reason"`
}

// TextEmbedder produces a feature vector for a piece of text.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// MediaAnalyzer scores an image or video for unsafe content and embeds it.
type MediaAnalyzer interface {
	AnalyzeImage(ctx context.Context, url string) (score float64, embedding []float32, detections []string, err error)
	AnalyzeVideo(ctx context.Context, url string) (score float64, embedding []float32, detections []string, err error)
}

// SimilarityStore is the slice of the vector store the aggregator consumes.
type SimilarityStore interface {
	DetectDuplicate(ctx context.Context, vector []float32) (*vectorstore.Match, error)
	SimilarDecisions(ctx context.Context, vector []float32) ([]vectorstore.Match, error)
}

// Aggregator runs per-modality analysis and folds in duplicate/RAG lookups.
// All handles are long-lived and injected at construction.
type Aggregator struct {
	embedder TextEmbedder
	media    MediaAnalyzer
	store    SimilarityStore
}

func NewAggregator(embedder TextEmbedder, media MediaAnalyzer, store SimilarityStore) *Aggregator {
	return &Aggregator{embedder: embedder, media: media, store: store}
}

// Classify analyzes every item of the request and aggregates the signals.
// A single item's failure degrades that item to 0.5/YELLOW; it never aborts
// the run, and a vector-store outage only skips the duplicate/RAG steps.
func (a *Aggregator) Classify(ctx context.Context, req Request) ClassificationResult {
	var result ClassificationResult
	var reasons []string
	var scores []float64

	// Text is embedded only; toxicity scoring is an external concern and
	// contributes 0 until wired.
	text := strings.TrimSpace(req.Title + " " + req.Description)
	textItem := AnalysisResult{Modality: ModalityText, Tier: TierGreen, Details: map[string]any{}}
	vector, err := a.embedder.EmbedText(ctx, text)
	if err != nil {
		config.Logger.Warnf("text embedding failed for issue %s: %v", req.ID, err)
		textItem.Score = 0.5
		textItem.Tier = TierYellow
		textItem.Details["error"] = err.Error()
		reasons = append(reasons, "Text analysis failed")
	} else {
		textItem.Embedding = vector
		result.TextEmbedding = vector
	}
	scores = append(scores, textItem.Score)
	result.Items = append(result.Items, textItem)

	for _, url := range req.Images {
		item := a.analyzeMedia(ctx, req.ID, ModalityImage, url, &reasons)
		if item.Embedding != nil {
			result.ImageEmbeddings = append(result.ImageEmbeddings, ImageEmbedding{URL: url, Vector: item.Embedding})
		}
		scores = append(scores, item.Score)
		result.Items = append(result.Items, item)
	}
	for _, url := range req.Videos {
		item := a.analyzeMedia(ctx, req.ID, ModalityVideo, url, &reasons)
		scores = append(scores, item.Score)
		result.Items = append(result.Items, item)
	}

	if result.TextEmbedding != nil && a.store != nil {
		a.foldStoreSignals(ctx, req.ID, &result, &reasons, &scores)
	}

	result.Signals = scores
	for _, s := range scores {
		if s > result.Score {
			result.Score = s
		}
	}
	result.Tier = ScoreToTier(result.Score)
	if len(reasons) == 0 {
		result.Reason = "Content passed all checks"
	} else {
		result.Reason = strings.Join(reasons, "; ")
	}
	return result
}

func (a *Aggregator) analyzeMedia(ctx context.Context, issueID string, modality Modality, url string, reasons *[]string) AnalysisResult {
	item := AnalysisResult{Modality: modality, Details: map[string]any{"url": url}}

	var score float64
	var embedding []float32
	var detections []string
	var err error
	if modality == ModalityImage {
		score, embedding, detections, err = a.media.AnalyzeImage(ctx, url)
	} else {
		score, embedding, detections, err = a.media.AnalyzeVideo(ctx, url)
	}

	if err != nil {
		config.Logger.Warnf("%s analysis failed for issue %s (%s): %v", strings.ToLower(string(modality)), issueID, url, err)
		item.Score = 0.5
		item.Tier = TierYellow
		item.Details["error"] = err.Error()
		*reasons = append(*reasons, fmt.Sprintf("%s analysis failed: %s", titleCase(modality), url))
		return item
	}

	item.Score = score
	item.Tier = ScoreToTier(score)
	item.Embedding = embedding
	if len(detections) > 0 {
		item.Details["detections"] = detections
	}
	if score >= 0.3 {
		*reasons = append(*reasons, fmt.Sprintf("%s flagged unsafe (score %.2f): %s", titleCase(modality), score, url))
	}
	return item
}

// foldStoreSignals adds the duplicate similarity and the RAG bias to the
// score pool. Store errors are logged and skipped.
func (a *Aggregator) foldStoreSignals(ctx context.Context, issueID string, result *ClassificationResult, reasons *[]string, scores *[]float64) {
	duplicate, err := a.store.DetectDuplicate(ctx, result.TextEmbedding)
	if err != nil {
		config.Logger.Errorf("duplicate lookup skipped for issue %s: %v", issueID, err)
	} else if duplicate != nil {
		result.Duplicate = duplicate
		*scores = append(*scores, duplicate.Score)
		*reasons = append(*reasons, fmt.Sprintf("Near-duplicate of issue %s (similarity %.2f)", duplicate.IssueID, duplicate.Score))
	}

	cases, err := a.store.SimilarDecisions(ctx, result.TextEmbedding)
	if err != nil {
		config.Logger.Errorf("similar-decision lookup skipped for issue %s: %v", issueID, err)
		return
	}
	if len(cases) == 0 {
		return
	}
	result.SimilarCases = cases

	rejected := 0
	for _, c := range cases {
		if c.HumanDecision == "REJECT" {
			rejected++
		}
	}
	if rejected*2 > len(cases) {
		*scores = append(*scores, 0.6)
		*reasons = append(*reasons, fmt.Sprintf("Moderators rejected %d of %d similar past reports", rejected, len(cases)))
	}
}

func titleCase(m Modality) string {
	s := strings.ToLower(string(m))
	return strings.ToUpper(s[:1]) + s[1:]
}
