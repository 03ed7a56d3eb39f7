package hcloud

import (
	"errors"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Server create failures with these codes will not succeed on a retry.
var fatalCreateCodes = []hcloud.ErrorCode{
	hcloud.ErrorCodeNotFound,
	hcloud.ErrorCodeInvalidInput,
	hcloud.ErrorCodeInvalidServerType,
	hcloud.ErrorCodeUniquenessError,
}

func errorCode(err error) (hcloud.ErrorCode, bool) {
	var apiErr hcloud.Error
	if !errors.As(err, &apiErr) {
		return "", false
	}
	return apiErr.Code, true
}

func isFatalCreateError(err error) bool {
	code, ok := errorCode(err)
	if !ok {
		return false
	}
	for _, c := range fatalCreateCodes {
		if code == c {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is an hcloud not_found API error.
func IsNotFound(err error) bool {
	code, ok := errorCode(err)
	return ok && code == hcloud.ErrorCodeNotFound
}
