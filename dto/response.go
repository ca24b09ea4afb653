package dto

// ExtractResponse is the per-document output envelope: the assembled
// records plus the field-level diagnostic report.
type ExtractResponse struct {
	Records []Record            `json:"records"`
	Report  map[string][]string `json:"report"`
}

// BatchItem wraps one document result in a batch run.
type BatchItem struct {
	ID     string           `json:"id"`
	Source string           `json:"source,omitempty"`
	Result *ExtractResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// BatchResponse is the output of a multi-document run, in input order.
type BatchResponse struct {
	Items []BatchItem `json:"items"`
}
