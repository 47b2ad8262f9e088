package common

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
)

var kindByCode = map[string]connector.Kind{
	"AccessDenied":             connector.KindForbidden,
	"AccessDeniedException":    connector.KindForbidden,
	"AllAccessDisabled":        connector.KindForbidden,
	"UnauthorizedOperation":    connector.KindForbidden,
	"ExpiredToken":             connector.KindUnauthorized,
	"ExpiredTokenException":    connector.KindUnauthorized,
	"InvalidAccessKeyId":       connector.KindUnauthorized,
	"InvalidClientTokenId":     connector.KindUnauthorized,
	"SignatureDoesNotMatch":    connector.KindUnauthorized,
	"NoSuchKey":                connector.KindNotFound,
	"NoSuchBucket":             connector.KindNotFound,
	"NoSuchEntity":             connector.KindNotFound,
	"NotFound":                 connector.KindNotFound,
	"SlowDown":                 connector.KindRateLimited,
	"Throttling":               connector.KindRateLimited,
	"ThrottlingException":      connector.KindRateLimited,
	"TooManyRequestsException": connector.KindRateLimited,
	"RequestLimitExceeded":     connector.KindRateLimited,
	"InternalError":            connector.KindTransient,
	"InternalFailure":          connector.KindTransient,
	"ServiceUnavailable":       connector.KindTransient,
	"RequestTimeout":           connector.KindTransient,
}

// Classify wraps an AWS SDK error as a *connector.Error. The API error code
// decides the kind; the HTTP status is the fallback. Context errors and nil
// pass through unchanged.
func Classify(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce *connector.Error
	if errors.As(err, &ce) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := kindByCode[apiErr.ErrorCode()]; ok {
			return connector.NewError(kind, op, err)
		}
	}

	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) {
		return connector.NewError(kindForStatus(withStatus.HTTPStatusCode()), op, err)
	}
	return connector.NewError(connector.KindUnknown, op, err)
}

func kindForStatus(status int) connector.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return connector.KindUnauthorized
	case status == http.StatusForbidden:
		return connector.KindForbidden
	case status == http.StatusNotFound:
		return connector.KindNotFound
	case status == http.StatusTooManyRequests:
		return connector.KindRateLimited
	case status >= 500:
		return connector.KindTransient
	}
	return connector.KindUnknown
}
