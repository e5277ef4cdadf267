package chi

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	domeval "github.com/kailas-cloud/recdex/internal/domain/evaluation"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	"github.com/kailas-cloud/recdex/internal/usecase/indexer"
	"github.com/kailas-cloud/recdex/internal/usecase/recommend"
)

// RecommendRequest is the body of POST /recommend. Either Query or the
// structured fields are set. job_description is accepted as an alias of query.
type RecommendRequest struct {
	Query           string   `json:"query" validate:"max=4096,no_null_bytes"`
	JobDescription  string   `json:"job_description" validate:"max=4096,no_null_bytes"`
	JobTitle        string   `json:"job_title" validate:"max=512,no_null_bytes"`
	Skills          []string `json:"skills" validate:"max=50,dive,max=256,no_null_bytes"`
	ExperienceLevel string   `json:"experience_level" validate:"max=128,no_null_bytes"`
	Context         string   `json:"context" validate:"max=4096,no_null_bytes"`
	Limit           int      `json:"limit" validate:"gte=0,lte=100"`
}

func (r *RecommendRequest) toQuery() query.Query {
	text := r.Query
	if text == "" {
		text = r.JobDescription
	}
	return query.New(text, query.Fields{
		JobTitle:        r.JobTitle,
		Skills:          r.Skills,
		ExperienceLevel: r.ExperienceLevel,
		Context:         r.Context,
	})
}

// BatchQueryDTO is one query of POST /batch_predict. It decodes from either a
// bare string or an {"id", "text"} object.
type BatchQueryDTO struct {
	ID   string `json:"id" validate:"max=256,no_null_bytes"`
	Text string `json:"text" validate:"max=4096,no_null_bytes"`
}

// UnmarshalJSON accepts "text" and {"id":..., "text":...}.
func (q *BatchQueryDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*q = BatchQueryDTO{}
		return json.Unmarshal(data, &q.Text)
	}
	type plain BatchQueryDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = BatchQueryDTO(p)
	return nil
}

// label is the Query column value: the ID when set, otherwise the text.
func (q *BatchQueryDTO) label() string {
	if q.ID != "" {
		return q.ID
	}
	return q.Text
}

// BatchPredictRequest is the body of POST /batch_predict.
type BatchPredictRequest struct {
	Queries []BatchQueryDTO `json:"queries" validate:"required,min=1,dive"`
	Limit   int             `json:"limit" validate:"gte=0,lte=100"`
}

// LabeledQueryDTO is one labeled query of POST /evaluate.
type LabeledQueryDTO struct {
	ID          string   `json:"id" validate:"max=256"`
	Query       string   `json:"query" validate:"max=4096,no_null_bytes"`
	GroundTruth []string `json:"ground_truth"`
}

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	KValues []int             `json:"k_values" validate:"max=10,dive,gte=1,lte=100"`
	Queries []LabeledQueryDTO `json:"queries" validate:"required,min=1,dive"`
}

func (r *EvaluateRequest) toLabeled() []domeval.LabeledQuery {
	out := make([]domeval.LabeledQuery, len(r.Queries))
	for i, q := range r.Queries {
		out[i] = domeval.LabeledQuery{
			ID:          q.ID,
			Query:       query.FromText(q.Query),
			GroundTruth: q.GroundTruth,
		}
	}
	return out
}

// IntentDTO mirrors query.Intent.
type IntentDTO struct {
	Technical bool `json:"technical"`
	SoftSkill bool `json:"soft_skill"`
}

// RecommendationDTO is one ranked item.
type RecommendationDTO struct {
	Rank            int     `json:"rank"`
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	URL             string  `json:"url"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	Duration        string  `json:"duration,omitempty"`
	AdaptiveSupport string  `json:"adaptive_support"`
	RemoteSupport   string  `json:"remote_support"`
	Score           float64 `json:"score"`
	Relevance       string  `json:"relevance"`
	Explanation     string  `json:"explanation,omitempty"`
}

// RecommendResponse is a recommendation set.
type RecommendResponse struct {
	Query           string              `json:"query"`
	Intent          IntentDTO           `json:"intent"`
	Balanced        bool                `json:"balanced"`
	Degraded        bool                `json:"degraded"`
	Recommendations []RecommendationDTO `json:"recommendations"`
}

func setToDTO(set *recommendation.Set) RecommendResponse {
	resp := RecommendResponse{
		Query: set.Query.Text,
		Intent: IntentDTO{
			Technical: set.Query.Intent.NeedsTechnical,
			SoftSkill: set.Query.Intent.NeedsSoftSkill,
		},
		Balanced:        set.Balanced,
		Degraded:        set.Degraded,
		Recommendations: make([]RecommendationDTO, len(set.Results)),
	}
	for i := range set.Results {
		r := &set.Results[i]
		resp.Recommendations[i] = RecommendationDTO{
			Rank:            r.Rank,
			ID:              r.Item.ID(),
			Name:            r.Item.Name(),
			URL:             r.Item.URL(),
			Description:     r.Item.Description(),
			Category:        r.Item.Category().String(),
			Duration:        r.Item.Duration(),
			AdaptiveSupport: string(r.Item.AdaptiveSupport()),
			RemoteSupport:   string(r.Item.RemoteSupport()),
			Score:           r.Score,
			Relevance:       string(r.Relevance),
			Explanation:     r.Explanation,
		}
	}
	return resp
}

// StatsDTO is one metric's aggregate.
type StatsDTO struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// SkipDTO explains an excluded labeled query.
type SkipDTO struct {
	QueryID string `json:"query_id"`
	Reason  string `json:"reason"`
}

// RecordDTO is the outcome of one evaluated query.
type RecordDTO struct {
	QueryID     string             `json:"query_id"`
	GroundTruth []string           `json:"ground_truth"`
	Predicted   []string           `json:"predicted"`
	RecallAtK   map[string]float64 `json:"recall_at_k"`
}

// EvaluateResponse is an evaluation report. Map keys are "recall@<k>".
type EvaluateResponse struct {
	RunID     string              `json:"run_id"`
	KValues   []int               `json:"k_values"`
	Evaluated int                 `json:"evaluated"`
	Skipped   []SkipDTO           `json:"skipped"`
	Metrics   map[string]StatsDTO `json:"metrics"`
	Records   []RecordDTO         `json:"records"`
}

func recallKey(k int) string { return "recall@" + strconv.Itoa(k) }

// ReportToDTO converts an evaluation report into its wire form.
func ReportToDTO(rep *domeval.Report) EvaluateResponse {
	resp := EvaluateResponse{
		RunID:     rep.RunID,
		KValues:   rep.KValues,
		Evaluated: rep.Evaluated,
		Skipped:   make([]SkipDTO, len(rep.Skipped)),
		Metrics:   make(map[string]StatsDTO, len(rep.PerK)),
		Records:   make([]RecordDTO, len(rep.Records)),
	}
	for i, s := range rep.Skipped {
		resp.Skipped[i] = SkipDTO{QueryID: s.QueryID, Reason: s.Reason}
	}
	for k, s := range rep.PerK {
		resp.Metrics[recallKey(k)] = StatsDTO{Mean: s.Mean, Std: s.Std, Min: s.Min, Max: s.Max}
	}
	for i := range rep.Records {
		rec := &rep.Records[i]
		dto := RecordDTO{
			QueryID:     rec.QueryID,
			GroundTruth: rec.GroundTruth,
			Predicted:   rec.Predicted.ItemIDs(),
			RecallAtK:   make(map[string]float64, len(rec.RecallAtK)),
		}
		for k, v := range rec.RecallAtK {
			dto.RecallAtK[recallKey(k)] = v
		}
		resp.Records[i] = dto
	}
	return resp
}

// CatalogStatsResponse describes the served catalog.
type CatalogStatsResponse struct {
	Total       int            `json:"total"`
	PerCategory map[string]int `json:"per_category"`
	Dimensions  int            `json:"dimensions"`
}

func statsToDTO(st recommend.Stats) CatalogStatsResponse {
	per := make(map[string]int, len(st.PerCategory))
	for _, c := range catalog.Categories {
		per[c.String()] = st.PerCategory[c]
	}
	return CatalogStatsResponse{Total: st.Total, PerCategory: per, Dimensions: st.Dimensions}
}

// RebuildResponse summarizes a catalog rebuild.
type RebuildResponse struct {
	Items       int   `json:"items"`
	Dimensions  int   `json:"dimensions"`
	TotalTokens int   `json:"total_tokens"`
	DurationMS  int64 `json:"duration_ms"`
}

func rebuildToDTO(r indexer.Result) RebuildResponse {
	return RebuildResponse{
		Items:       r.Items,
		Dimensions:  r.Dimensions,
		TotalTokens: r.TotalTokens,
		DurationMS:  r.Duration.Milliseconds(),
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Items   int               `json:"items"`
	Checks  map[string]string `json:"checks"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeBadRequest        = "bad_request"
	CodeValidationFailed  = "validation_failed"
	CodeInvalidQuery      = "invalid_query"
	CodeRateLimited       = "rate_limited"
	CodeEmbeddingError    = "embedding_error"
	CodeConfiguration     = "configuration_error"
	CodeRebuildInProgress = "rebuild_in_progress"
	CodeTimeout           = "timeout"
	CodeInternalError     = "internal_error"
)
