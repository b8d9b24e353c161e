package service

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"anoa.com/isfportal/internal/modules/search/dto"
	"anoa.com/isfportal/pkg/logger"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const indexUID = "portal_content"

// Searchable tables and the column that carries each one's body text.
var bodyColumn = map[string]string{
	"events":        "description",
	"announcements": "content",
	"threads":       "author",
}

type SearchService interface {
	// IndexRecords upserts rows of a searchable table; other tables are ignored.
	IndexRecords(table string, records []map[string]interface{}) error
	RemoveRecords(table string, ids []uint) error
	Search(query string, limit int) (*dto.SearchResponse, error)
}

type meiliDoc struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	RecordID uint   `json:"record_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Date     string `json:"date,omitempty"`
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	filterable := []interface{}{"kind"}
	if _, err := s.client.Index(indexUID).UpdateFilterableAttributes(&filterable); err != nil {
		logger.Warn().Err(err).Msg("failed to update search filterable attributes")
	}

	searchable := []string{"title", "body"}
	if _, err := s.client.Index(indexUID).UpdateSearchableAttributes(&searchable); err != nil {
		logger.Warn().Err(err).Msg("failed to update search searchable attributes")
	}
}

func docID(table string, id uint) string {
	return fmt.Sprintf("%s-%d", table, id)
}

func (s *meiliSearchService) clean(v interface{}) string {
	str, _ := v.(string)
	return html.UnescapeString(s.sanitizer.Sanitize(str))
}

func (s *meiliSearchService) IndexRecords(table string, records []map[string]interface{}) error {
	body, ok := bodyColumn[table]
	if !ok || len(records) == 0 {
		return nil
	}

	docs := make([]meiliDoc, 0, len(records))
	for _, rec := range records {
		id, ok := recordID(rec["id"])
		if !ok {
			continue
		}
		doc := meiliDoc{
			ID:       docID(table, id),
			Kind:     table,
			RecordID: id,
			Title:    s.clean(rec["title"]),
			Body:     s.clean(rec[body]),
		}
		for _, col := range []string{"date", "last_post", "created_at"} {
			if d, ok := rec[col].(string); ok && d != "" {
				doc.Date = d
				break
			}
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil
	}

	primaryKey := "id"
	if _, err := s.client.Index(indexUID).AddDocuments(docs, &primaryKey); err != nil {
		return fmt.Errorf("failed to index %s: %w", table, err)
	}
	return nil
}

func (s *meiliSearchService) RemoveRecords(table string, ids []uint) error {
	if _, ok := bodyColumn[table]; !ok {
		return nil
	}
	for _, id := range ids {
		if _, err := s.client.Index(indexUID).DeleteDocument(docID(table, id)); err != nil {
			return fmt.Errorf("failed to remove %s from index: %w", docID(table, id), err)
		}
	}
	return nil
}

func (s *meiliSearchService) Search(query string, limit int) (*dto.SearchResponse, error) {
	query = strings.TrimSpace(query)
	resp := &dto.SearchResponse{Query: query, Hits: []dto.SearchHit{}}
	if query == "" {
		return resp, nil
	}

	raw, err := s.client.Index(indexUID).SearchRaw(query, &meilisearch.SearchRequest{Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var result struct {
		Hits []meiliDoc `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}

	for _, h := range result.Hits {
		resp.Hits = append(resp.Hits, dto.SearchHit{
			Kind:     h.Kind,
			RecordID: h.RecordID,
			Title:    h.Title,
			Body:     h.Body,
			Date:     h.Date,
		})
	}
	return resp, nil
}

func recordID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case float64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case uint:
		return id, true
	case int:
		return uint(id), id >= 0
	default:
		return 0, false
	}
}

// Indexed reports whether a table feeds the search index.
func Indexed(table string) bool {
	_, ok := bodyColumn[table]
	return ok
}
