package models

// ProviderInfo describes one configured routing provider.
type ProviderInfo struct {
	ID            string     `json:"id"`
	Default       bool       `json:"default"`
	Healthy       bool       `json:"healthy"`
	CircuitState  string     `json:"circuitState,omitempty"`
	Requests      uint32     `json:"requests"`
	Failures      uint32     `json:"failures"`
	LastSuccessAt *Timestamp `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp `json:"lastFailureAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// ProvidersResponse is the response for listing routing providers.
type ProvidersResponse struct {
	Default   string         `json:"default"`
	Providers []ProviderInfo `json:"providers"`
}
