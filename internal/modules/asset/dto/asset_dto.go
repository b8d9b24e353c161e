package dto

type UploadResponse struct {
	Key       string `json:"Key"`
	PublicURL string `json:"public_url"`
}
