// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/souk-dev/souk/internal/store"
	"github.com/souk-dev/souk/internal/sync"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// IngestionTrigger schedules a background synchronization run.
type IngestionTrigger interface {
	Start(ctx context.Context) (string, error)
}

// Index is the read side of the vector index the API exposes.
type Index interface {
	Collection() string
	Count(ctx context.Context) (int, error)
	SimilarityQuery(ctx context.Context, queryText string, k int, filter map[string]string) ([]store.Result, error)
}

// ReportSource exposes the most recent synchronization report.
type ReportSource interface {
	Last() (sync.Report, bool)
}

// Services holds the dependencies the REST routes delegate to.
type Services struct {
	Trigger IngestionTrigger
	Index   Index
	Reports ReportSource
}

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ingest-products",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/ingest",
		Summary:     "Start product ingestion",
		Description: "Schedules a catalog-to-index synchronization run and returns immediately.",
		Tags:        []string{"products"},
	}, s.handleIngest)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/search",
		Summary:     "Search products by description",
		Tags:        []string{"products"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "service-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Index status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type ingestOutput struct {
	Body struct {
		Status string `json:"status" example:"Ingestion started" doc:"Scheduling acknowledgment"`
		RunID  string `json:"run_id" doc:"Identifier of the scheduled run"`
	}
}

type searchInput struct {
	SearchQuery string `query:"search_query" required:"true" minLength:"1" doc:"Free-text query against product descriptions"`
	Category    string `query:"category" required:"true" minLength:"1" doc:"Exact-match category filter"`
	K           int    `query:"k" default:"10" minimum:"1" doc:"Maximum number of results"`
}

// SearchResult is one similarity search hit.
type SearchResult struct {
	ID          string `json:"id" doc:"Product identifier"`
	Name        string `json:"name" doc:"Product name"`
	Description string `json:"description" doc:"Indexed description text"`
}

type searchOutput struct {
	Body struct {
		Results []SearchResult `json:"results" doc:"Hits ordered by decreasing similarity"`
	}
}

type statusOutput struct {
	Body struct {
		Collection string       `json:"collection" doc:"Index collection label"`
		Entries    int          `json:"entries" doc:"Number of indexed entries"`
		LastRun    *sync.Report `json:"last_run,omitempty" doc:"Most recent synchronization report"`
	}
}

// --- Handlers ---

func (s *Server) handleIngest(ctx context.Context, _ *struct{}) (*ingestOutput, error) {
	runID, err := s.services.Trigger.Start(ctx)
	if err != nil {
		if soukerr.IsConflict(err) {
			return nil, huma.Error409Conflict("a synchronization run is already active")
		}
		return nil, huma.Error500InternalServerError("scheduling ingestion", err)
	}

	out := &ingestOutput{}
	out.Body.Status = "Ingestion started"
	out.Body.RunID = runID
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	hits, err := s.services.Index.SimilarityQuery(ctx, input.SearchQuery, input.K,
		map[string]string{"category": input.Category})
	if err != nil {
		return nil, huma.Error500InternalServerError("searching products", err)
	}

	out := &searchOutput{}
	out.Body.Results = make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		out.Body.Results = append(out.Body.Results, SearchResult{
			ID:          hit.ProductID,
			Name:        hit.Name,
			Description: hit.Content,
		})
	}
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	count, err := s.services.Index.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("counting index entries", err)
	}

	out := &statusOutput{}
	out.Body.Collection = s.services.Index.Collection()
	out.Body.Entries = count
	if rep, ok := s.services.Reports.Last(); ok {
		out.Body.LastRun = &rep
	}
	return out, nil
}
