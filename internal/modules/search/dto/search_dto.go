package dto

type SearchHit struct {
	Kind     string `json:"kind"`
	RecordID uint   `json:"record_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Date     string `json:"date,omitempty"`
}

type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}
