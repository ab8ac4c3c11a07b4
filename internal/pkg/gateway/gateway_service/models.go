package gateway_service

// Row is one decoded CSV record, column name to value.
type Row map[string]string

type loginResponse struct {
	AuthURL string `json:"auth_url"`
}

// CallbackResult is what the code exchange may hand back. Both fields are
// empty when the backend answers with an opaque success.
type CallbackResult struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type uploadResponse struct {
	Rows []map[string]any `json:"rows"`
}

type sendRequest struct {
	Prompt  string `json:"prompt" validate:"required"`
	CSVRows []Row  `json:"csv_rows" validate:"required,min=1"`
}

type sendResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}
