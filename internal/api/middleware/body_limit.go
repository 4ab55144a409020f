package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"course-signup/pkg/response"
)

// BodyLimit 请求体大小限制，超出时读取请求体会返回 *http.MaxBytesError
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// IsBodyTooLarge 判断绑定错误是否由请求体超限引起
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// RespondBodyTooLarge 413 响应
func RespondBodyTooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
}

func abortInternal(c *gin.Context) {
	response.InternalError(c)
	c.Abort()
}
