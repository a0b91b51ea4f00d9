package objstore

import (
	"errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// NullVersion is the version id objects acquire in buckets that had
// versioning enabled and later disabled.
const NullVersion = "null"

// StatusOf extracts the HTTP status carried by a storage error, or 0 when the
// error has no response attached.
func StatusOf(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// IsPermanent reports whether a storage error is stable under retry: payment
// required, forbidden, and not-found do not heal with backoff.
func IsPermanent(err error) bool {
	switch StatusOf(err) {
	case http.StatusPaymentRequired, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// IsRetryable classifies storage errors for the backoff policy. Only errors
// that carry a non-permanent service response are worth replaying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	status := StatusOf(err)
	return status != 0 && !IsPermanent(err)
}
