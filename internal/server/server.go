package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/comprank/internal/config"
	"github.com/agenthands/comprank/internal/core"
	"github.com/agenthands/comprank/internal/core/explain"
	"github.com/agenthands/comprank/internal/core/feedback"
	"github.com/agenthands/comprank/internal/core/training"
	"github.com/agenthands/comprank/internal/geo"
	"github.com/agenthands/comprank/internal/llm"
)

// Server exposes the review surface: explanations out, feedback and
// rebuild triggers in. The mutex serializes cascade runs against feedback
// writes; concurrent reviewers still race under last-write-wins, which is
// the documented merge behavior.
type Server struct {
	Config   *config.Config
	Pipeline *core.Pipeline

	mu sync.Mutex
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults", cfgPath, err)
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	// Override config with env vars if present
	if envProvider := os.Getenv("LLM_PROVIDER"); envProvider != "" {
		cfg.LLM.Provider = envProvider
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		cfg.LLM.Model = envModel
	}
	if envAPIKey := os.Getenv("LLM_API_KEY"); envAPIKey != "" {
		cfg.LLM.APIKey = envAPIKey
	}
	if envBaseURL := os.Getenv("LLM_BASE_URL"); envBaseURL != "" {
		cfg.LLM.BaseURL = envBaseURL
	}

	var llmClient llm.Client
	if cfg.LLM.Provider != "" {
		llmClient, err = llm.NewClient(context.Background(), cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
	} else {
		log.Println("No LLM provider configured: address cleanup and narratives disabled")
	}

	geocoder := geo.NewNominatimClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent,
		time.Duration(cfg.Geocode.TimeoutSeconds)*time.Second)

	return &Server{
		Config: cfg,
		Pipeline: &core.Pipeline{
			Config:   cfg,
			Geocoder: geocoder,
			LLM:      llmClient,
		},
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/orders", s.ListOrders)
	r.GET("/orders/:orderID/explanations", s.OrderExplanations)
	r.POST("/feedback", s.SubmitFeedback)
	r.POST("/retrain", s.Retrain)
	r.POST("/reset", s.Reset)

	return r
}

func (s *Server) ListOrders(c *gin.Context) {
	exps, err := explain.LoadTable(s.Config.ExplanationsPath())
	if err != nil {
		log.Printf("Failed to load explanations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No explanation data, run the pipeline first"})
		return
	}

	var orders []string
	seen := make(map[string]bool)
	for i := range exps {
		if !seen[exps[i].OrderID] {
			seen[exps[i].OrderID] = true
			orders = append(orders, exps[i].OrderID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// explanationView is one explanation row as the review UI consumes it.
type explanationView struct {
	Rank             int              `json:"rank"`
	CandidateAddress string           `json:"candidate_address"`
	Score            float64          `json:"score"`
	Explanation      string           `json:"explanation"`
	PositiveFactors  []explain.Factor `json:"positive_factors"`
	NegativeFactors  []explain.Factor `json:"negative_factors"`
	Candidate        candidateView    `json:"candidate"`
}

type candidateView struct {
	Bedrooms     *float64 `json:"bedrooms"`
	FullBaths    int      `json:"num_full_baths"`
	HalfBaths    int      `json:"num_half_baths"`
	GLA          *float64 `json:"gla"`
	LotSizeSF    *float64 `json:"lot_size_sf"`
	PropertyType *string  `json:"property_type"`
	ClosePrice   *float64 `json:"close_price"`
}

// valueEstimate summarizes the top candidates' close prices into a
// suggested range for the subject.
type valueEstimate struct {
	Average  float64 `json:"average"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Midpoint float64 `json:"midpoint"`
}

func (s *Server) OrderExplanations(c *gin.Context) {
	orderID := c.Param("orderID")

	exps, err := explain.LoadTable(s.Config.ExplanationsPath())
	if err != nil {
		log.Printf("Failed to load explanations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No explanation data, run the pipeline first"})
		return
	}

	var views []explanationView
	var subject string
	var prices []float64
	for i := range exps {
		e := &exps[i]
		if e.OrderID != orderID {
			continue
		}
		subject = e.SubjectAddress
		views = append(views, explanationView{
			Rank:             e.Rank,
			CandidateAddress: e.CandidateAddress,
			Score:            e.Score,
			Explanation:      e.Narrative,
			PositiveFactors:  e.Positive,
			NegativeFactors:  e.Negative,
			Candidate: candidateView{
				Bedrooms:     e.Candidate.Bedrooms,
				FullBaths:    e.Candidate.FullBaths,
				HalfBaths:    e.Candidate.HalfBaths,
				GLA:          e.Candidate.GLA,
				LotSizeSF:    e.Candidate.LotSizeSF,
				PropertyType: e.Candidate.PropertyType,
				ClosePrice:   e.Candidate.ClosePrice,
			},
		})
		if e.Candidate.ClosePrice != nil {
			prices = append(prices, *e.Candidate.ClosePrice)
		}
	}
	if len(views) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown order"})
		return
	}

	resp := gin.H{
		"orderID":         orderID,
		"subject_address": subject,
		"explanations":    views,
	}
	if est := estimateValue(prices); est != nil {
		resp["suggested_value"] = est
	}
	c.JSON(http.StatusOK, resp)
}

func estimateValue(prices []float64) *valueEstimate {
	if len(prices) == 0 {
		return nil
	}
	est := &valueEstimate{Min: prices[0], Max: prices[0]}
	var sum float64
	for _, p := range prices {
		sum += p
		if p < est.Min {
			est.Min = p
		}
		if p > est.Max {
			est.Max = p
		}
	}
	est.Average = sum / float64(len(prices))
	est.Midpoint = (est.Min + est.Max) / 2
	return est
}

type FeedbackRequest struct {
	OrderID string `json:"orderID"`
	Items   []struct {
		CandidateAddress string `json:"candidate_address"`
		Agree            bool   `json:"agree"`
	} `json:"items"`
}

// SubmitFeedback merges reviewer judgments into the feedback log,
// enriching each with the explanation row it refers to. Rebuilding is a
// separate signal via /retrain.
func (s *Server) SubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" || len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	exps, err := explain.LoadTable(s.Config.ExplanationsPath())
	if err != nil {
		log.Printf("Failed to load explanations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No explanation data, run the pipeline first"})
		return
	}
	byAddr := make(map[string]*explain.Explanation)
	for i := range exps {
		if exps[i].OrderID == req.OrderID {
			byAddr[geo.NormalizeAddress(exps[i].CandidateAddress)] = &exps[i]
		}
	}

	labels := s.trainingLabels(req.OrderID)

	var records []feedback.Record
	for _, item := range req.Items {
		key := geo.NormalizeAddress(item.CandidateAddress)
		rec := feedback.Record{
			OrderID:          req.OrderID,
			CandidateAddress: item.CandidateAddress,
			OriginalLabel:    labels[key],
			Agree:            item.Agree,
		}
		if e, ok := byAddr[key]; ok {
			rec.SubjectAddress = e.SubjectAddress
			rec.Score = e.Score
		}
		records = append(records, rec)
	}

	s.mu.Lock()
	err = s.Pipeline.SubmitFeedback(records)
	s.mu.Unlock()
	if err != nil {
		log.Printf("Failed to save feedback: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"submission_id": uuid.NewString(),
		"merged":        len(records),
	})
}

// trainingLabels recovers one order's heuristic labels from the training
// table, keyed by normalized candidate address. A missing table yields an
// empty map, which defaults every label to 0.
func (s *Server) trainingLabels(orderID string) map[string]int {
	labels := make(map[string]int)
	rows, err := training.LoadTable(s.Config.TrainingTablePath())
	if err != nil {
		log.Printf("Failed to load training table: %v", err)
		return labels
	}
	for i := range rows {
		if rows[i].OrderID == orderID {
			labels[geo.NormalizeAddress(rows[i].CandidateAddress)] = rows[i].Label
		}
	}
	return labels
}

func (s *Server) Retrain(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Pipeline.Retrain(c.Request.Context()); err != nil {
		log.Printf("Retrain failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Retrain failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) Reset(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Pipeline.Reset(c.Request.Context()); err != nil {
		log.Printf("Reset failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
