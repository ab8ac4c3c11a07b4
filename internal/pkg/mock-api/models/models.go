package models

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type LoginResponse struct {
	AuthURL string `json:"auth_url"`
}

type CallbackResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type UploadResponse struct {
	Rows    []map[string]string `json:"rows"`
	Columns []string            `json:"columns"`
}

type SendRequest struct {
	Prompt  string              `json:"prompt"`
	CSVRows []map[string]string `json:"csv_rows"`
}

type SendResponse struct {
	Message string   `json:"message"`
	Sent    int      `json:"sent"`
	Skipped []string `json:"skipped,omitempty"`
}

// SentEmail is one rendered message the mock backend "delivered".
type SentEmail struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}
