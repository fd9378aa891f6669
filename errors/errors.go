package errors

import "fmt"

var (
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrValidation           = fmt.Errorf("invalid payload")
	ErrStoreUnavailable     = fmt.Errorf("message store unavailable")
	ErrStatusRegression     = fmt.Errorf("message status cannot regress")
)
