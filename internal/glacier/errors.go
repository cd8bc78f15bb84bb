package glacier

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the service error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func wrap(op string, err error) error {
	if code := ErrorCode(err); code != "" {
		return fmt.Errorf("glacier %s (%s): %w", op, code, err)
	}
	return fmt.Errorf("glacier %s: %w", op, err)
}
