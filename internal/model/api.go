package model

// Wire types of the remote cache admin API.

type OrganizedCache struct {
	Providers       []ProviderNode `json:"providers"`
	TotalProviders  int            `json:"total_providers"`
	TotalEntries    int            `json:"total_entries"`
	ModifiedEntries int            `json:"modified_entries"`
}

// ProviderNode groups cached endpoints by upstream host.
type ProviderNode struct {
	Name      string         `json:"name"`
	Host      string         `json:"host"`
	Endpoints []EndpointNode `json:"endpoints"`
	Stats     ProviderStats  `json:"stats"`
}

type ProviderStats struct {
	TotalEntries    int    `json:"total_entries"`
	LastActivity    *int64 `json:"last_activity"`
	AvgResponseSize int64  `json:"avg_response_size"`
	ModifiedCount   int    `json:"modified_count"`
}

type EndpointNode struct {
	ID           string `json:"id"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	CacheKey     string `json:"cache_key"`
	Status       int    `json:"status"`
	IsModified   bool   `json:"is_modified"`
	LastModified *int64 `json:"last_modified"`
	ResponseSize int64  `json:"response_size"`
	ContentType  string `json:"content_type"`
}

type ModifyRequest struct {
	CacheKey      string        `json:"cache_key" validate:"required"`
	Modifications Modifications `json:"modifications"`
	UserID        string        `json:"user_id" validate:"required,max=128"`
	Notes         string        `json:"notes" validate:"max=4096"`
}

type ModifyResponse struct {
	Success              bool   `json:"success"`
	CacheKey             string `json:"cache_key"`
	ModificationsApplied int    `json:"modifications_applied"`
	ModifiedBy           string `json:"modified_by"`
	ModificationID       string `json:"modification_id"`
}

type ResetRequest struct {
	CacheKey string `json:"cache_key" validate:"required"`
	UserID   string `json:"user_id" validate:"required,max=128"`
}

type ResetResponse struct {
	Success  bool   `json:"success"`
	CacheKey string `json:"cache_key"`
	ResetBy  string `json:"reset_by"`
	ResetAt  int64  `json:"reset_at"`
}

type TestRequest struct {
	CacheKey      string        `json:"cache_key" validate:"required"`
	Modifications Modifications `json:"modifications"`
}

type TestResponse struct {
	Success             bool       `json:"success"`
	TestResult          TestResult `json:"test_result"`
	ModificationsTested int        `json:"modifications_tested"`
	ResponseSize        int64      `json:"response_size"`
	StatusCode          int        `json:"status_code"`
	ContentType         string     `json:"content_type"`
}

type TestResult struct {
	Status         int              `json:"status"`
	Headers        Headers          `json:"headers"`
	Body           any              `json:"body"`
	ResponseTimeMS int64            `json:"response_time_ms"`
	Validation     ValidationResult `json:"validation"`
	SizeBytes      int64            `json:"size_bytes"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
