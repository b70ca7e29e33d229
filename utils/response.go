package utils

import "github.com/gin-gonic/gin"

// ErrorResponse defines the uniform structure for failed API responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Error   string `json:"error"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, body any) {
	ctx.JSON(status, body)
}

// Success writes a 200 response with "success": true merged into fields.
func Success(ctx *gin.Context, fields gin.H) {
	if fields == nil {
		fields = gin.H{}
	}
	fields["success"] = true
	Respond(ctx, 200, fields)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, ErrorResponse{
		Success: false,
		Code:    code,
		Error:   message,
	})
}
