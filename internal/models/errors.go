package models

// 投资失败错误码
const (
	ErrCodeNotLoggedIn     = "NOT_LOGGED_IN"
	ErrCodeInvalidOption   = "INVALID_OPTION"
	ErrCodeInsufficient    = "INSUFFICIENT_BALANCE"
	ErrCodeAlreadyActive   = "INVESTMENT_ALREADY_ACTIVE"
	ErrCodeInvestFailed    = "INVEST_FAILED" // 未归类的内部错误兜底
	ErrCodeInvalidUserName = "INVALID_USER_NAME"
)

// InvestError 投资业务错误，携带稳定的 (code, message) 对，可直接展示给用户
type InvestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *InvestError) Error() string {
	return e.Code + ": " + e.Message
}

// NewInvestError 创建业务错误
func NewInvestError(code, message string) *InvestError {
	return &InvestError{Code: code, Message: message}
}

var (
	ErrNotLoggedIn   = NewInvestError(ErrCodeNotLoggedIn, "User is not logged in")
	ErrInvalidOption = NewInvestError(ErrCodeInvalidOption, "Invalid investment option")
	ErrInsufficient  = NewInvestError(ErrCodeInsufficient, "Not enough balance for this investment")
	ErrAlreadyActive = NewInvestError(ErrCodeAlreadyActive, "Investment is already active")
)
