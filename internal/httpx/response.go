package httpx

import (
	"github.com/gin-gonic/gin"
)

// Error types surfaced in the envelope.
const (
	TypeValidation         = "validation_error"
	TypeInvalidCredentials = "invalid_credentials"
	TypeInvalidOTP         = "invalid_otp"
	TypeMissingToken       = "missing_token"
	TypeInvalidToken       = "invalid_token"
	TypeTokenExpired       = "token_expired"
	TypeTokenRevoked       = "token_revoked"
	TypeForbidden          = "forbidden"
	TypeNotFound           = "not_found"
	TypeDuplicateEntry     = "duplicate_entry"
	TypeProductNotFound    = "product_not_found"
	TypeOutOfStock         = "out_of_stock"
	TypeServerError        = "server_error"
)

type Envelope struct {
	Success bool       `json:"success"`
	Type    string     `json:"type,omitempty"`
	Message string     `json:"message"`
	Data    *Data      `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type Data struct {
	Results interface{} `json:"results"`
	Meta    interface{} `json:"meta,omitempty"`
}

type ErrorBody struct {
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func OK(c *gin.Context, status int, message string, results interface{}) {
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    &Data{Results: results},
	})
}

func OKWithMeta(c *gin.Context, status int, message string, results interface{}, meta Meta) {
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    &Data{Results: results, Meta: meta},
	})
}

func Fail(c *gin.Context, status int, errType, message string, details interface{}) {
	var body *ErrorBody
	if details != nil {
		body = &ErrorBody{Details: details}
	}
	c.JSON(status, Envelope{
		Success: false,
		Type:    errType,
		Message: message,
		Error:   body,
	})
}
