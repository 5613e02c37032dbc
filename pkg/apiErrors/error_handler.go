package apiErrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Códigos de erro do pipeline de exportação
const (
	// Erros de configuração (fatais antes de qualquer chamada de rede)
	ErrMissingAPIKey  = "CFG_001" // Chave de API obrigatória ausente
	ErrInvalidBaseURL = "CFG_002" // URL base inválida
	ErrInvalidConfig  = "CFG_003" // Configuração inválida

	// Erros de autenticação junto ao Plausible
	ErrInvalidAPIKey = "AUTH_001" // Chave rejeitada (401)
	ErrForbidden     = "AUTH_002" // Chave sem permissão (403)

	// Erros recuperáveis de comunicação
	ErrRateLimited      = "RATE_001" // 429, recuperável via backoff
	ErrNetworkFailure   = "NET_001"  // Timeout ou falha de conexão
	ErrUpstreamFailure  = "NET_002"  // 5xx do Plausible
	ErrRetriesExhausted = "NET_003"  // Tentativas esgotadas

	// Erros de validação de payload
	ErrMalformedPayload = "VAL_001" // Resposta com formato inesperado
	ErrResourceNotFound = "VAL_002" // Recurso inexistente (404)
	ErrInvalidRequest   = "VAL_003" // Requisição inválida no status API

	// Erros de escrita dos relatórios
	ErrExportWrite = "IO_001" // Falha ao gravar arquivo de saída
)

// Mapeamento de códigos de erro para status HTTP do status API
var httpStatusMap = map[string]int{
	ErrMissingAPIKey:    http.StatusInternalServerError,
	ErrInvalidBaseURL:   http.StatusInternalServerError,
	ErrInvalidConfig:    http.StatusInternalServerError,
	ErrInvalidAPIKey:    http.StatusBadGateway,
	ErrForbidden:        http.StatusBadGateway,
	ErrRateLimited:      http.StatusServiceUnavailable,
	ErrNetworkFailure:   http.StatusServiceUnavailable,
	ErrUpstreamFailure:  http.StatusBadGateway,
	ErrRetriesExhausted: http.StatusBadGateway,
	ErrMalformedPayload: http.StatusBadGateway,
	ErrResourceNotFound: http.StatusNotFound,
	ErrInvalidRequest:   http.StatusBadRequest,
	ErrExportWrite:      http.StatusInternalServerError,
}

// Códigos que podem ser tentados novamente pelo executor de retry
var retryableCodes = map[string]bool{
	ErrRateLimited:     true,
	ErrNetworkFailure:  true,
	ErrUpstreamFailure: true,
}

// APIError representa um erro padronizado do pipeline
type APIError struct {
	Code    string `json:"code"`              // Código de erro para o cliente
	Message string `json:"message,omitempty"` // Mensagem descritiva (opcional)
	Details any    `json:"details,omitempty"` // Detalhes adicionais (opcional)

	// RetryAfter carrega a dica do header Retry-After em respostas 429
	RetryAfter time.Duration `json:"-"`

	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// New cria um erro padronizado com código e mensagem
func New(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Wrap envolve um erro Go existente em um erro padronizado
func Wrap(err error, code, message string) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// CodeOf retorna o código do erro, ou vazio se não for um APIError
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsRetryable indica se o erro pode ser tentado novamente
func IsRetryable(err error) bool {
	return retryableCodes[CodeOf(err)]
}

// IsAuthError indica se o erro é de autenticação (401/403)
func IsAuthError(err error) bool {
	code := CodeOf(err)
	return code == ErrInvalidAPIKey || code == ErrForbidden
}

// IsConfigError indica se o erro é de configuração
func IsConfigError(err error) bool {
	switch CodeOf(err) {
	case ErrMissingAPIKey, ErrInvalidBaseURL, ErrInvalidConfig:
		return true
	}
	return false
}

// IsValidationError indica se o payload da API veio malformado
func IsValidationError(err error) bool {
	return CodeOf(err) == ErrMalformedPayload
}

// RetryAfterHint retorna a dica de espera enviada pelo servidor em um 429,
// ou zero quando não há dica
func RetryAfterHint(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// WriteError escreve o erro padronizado para a resposta HTTP do status API
func WriteError(w http.ResponseWriter, code string, message string, details any) {
	status, exists := httpStatusMap[code]
	if !exists {
		status = http.StatusInternalServerError
	}

	apiErr := APIError{
		Code:    code,
		Message: message,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr)
}
