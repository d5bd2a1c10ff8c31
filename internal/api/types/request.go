package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ParseID reads the path parameter name as a positive int64. On failure it
// writes a validation error and returns false.
func ParseID(c *gin.Context, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		AbortWithError(c, ValidationError("invalid "+resource+" ID"))
		return 0, false
	}
	return id, true
}

// storagePrecision is the resolution of stored timestamps.
const storagePrecision = time.Millisecond

// ParseTime accepts RFC 3339 timestamps and YYYY-MM-DD dates, both in UTC
// unless an offset is given. An empty value yields nil.
func ParseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid time %q: expected RFC 3339 or YYYY-MM-DD", value)
}

// ParseEndTime parses the upper bound of an inclusive range. A YYYY-MM-DD
// value covers the whole day and resolves to its last stored instant.
func ParseEndTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		t = t.AddDate(0, 0, 1).Add(-storagePrecision)
		return &t, nil
	}
	return ParseTime(value)
}
