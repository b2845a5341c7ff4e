package http

import (
	"errors"
	"net/http"
	"sort"

	z "github.com/Oudwins/zog"
	"github.com/gin-gonic/gin"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

const (
	msgInternal    = "internal server error"
	msgUnavailable = "temporarily unavailable, retry later"
)

// ingestFailure is how a pipeline error is reported back to a device.
type ingestFailure struct {
	Status  int
	Message string
	Fields  []payload.FieldError
}

// classifyIngestError maps pipeline failures to the plaintext responses
// devices understand. Internal detail goes to the log only.
func classifyIngestError(err error) ingestFailure {
	var verr *payload.ValidationError
	switch {
	case errors.Is(err, channel.ErrTransport), errors.Is(err, channel.ErrAuthentication):
		return ingestFailure{Status: http.StatusBadRequest, Message: "could not decrypt payload"}
	case errors.As(err, &verr):
		return ingestFailure{Status: http.StatusBadRequest, Message: "invalid payload", Fields: verr.Fields}
	case errors.Is(err, iot.ErrDeviceUnauthorized):
		return ingestFailure{Status: http.StatusUnauthorized, Message: iot.ErrDeviceUnauthorized.Error()}
	case errors.Is(err, iot.ErrDeviceMismatch):
		return ingestFailure{Status: http.StatusForbidden, Message: iot.ErrDeviceMismatch.Error()}
	case errors.Is(err, iot.ErrRateLimited):
		return ingestFailure{Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
	case errors.Is(err, iot.ErrConflict), errors.Is(err, iot.ErrStoreUnavailable):
		return ingestFailure{Status: http.StatusServiceUnavailable, Message: msgUnavailable}
	default:
		return ingestFailure{Status: http.StatusInternalServerError, Message: msgInternal}
	}
}

func writeIngestError(c *gin.Context, err error) {
	_ = c.Error(err)

	failure := classifyIngestError(err)
	if failure.Status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	body := gin.H{"error": failure.Message}
	if failure.Fields != nil {
		body["fields"] = failure.Fields
	}
	c.JSON(failure.Status, body)
}

func writeServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, iot.ErrDeviceNotFound), errors.Is(err, iot.ErrPlantNotFound),
		errors.Is(err, iot.ErrGroupNotFound), errors.Is(err, iot.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, iot.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, iot.ErrInvalidHours), errors.Is(err, iot.ErrInvalidActuator), errors.Is(err, iot.ErrInvalidThresholds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, iot.ErrGroupExists):
		c.JSON(http.StatusConflict, gin.H{"error": iot.ErrGroupExists.Error()})
	case errors.Is(err, iot.ErrStoreUnavailable), errors.Is(err, iot.ErrConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func writeSchemaError(c *gin.Context, issues z.ZogIssueMap) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": issueFields(issues)})
}

func issueFields(issues z.ZogIssueMap) []payload.FieldError {
	fields := []payload.FieldError{}
	for key, list := range issues {
		if key == "$first" || len(list) == 0 {
			continue
		}
		fields = append(fields, payload.FieldError{Field: key, Message: list[0].Message})
	}
	sort.Slice(fields, func(a, b int) bool { return fields[a].Field < fields[b].Field })
	return fields
}
