package cvstorage

import (
	"fmt"
	"strings"

	"recruitment_backend/platform/apperr"
)

// AllowedContentTypes are the MIME types accepted for CVs.
var AllowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/rtf": true,
	"text/plain":      true,
}

// ValidateContentType checks that contentType is an accepted CV format.
// Parameters such as charset are ignored.
func ValidateContentType(contentType string) error {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if !AllowedContentTypes[base] {
		return apperr.Validation(fmt.Sprintf("content type %q is not allowed for CVs", contentType))
	}
	return nil
}

// ValidateFileSize checks that size is positive and at most max bytes.
// A max of zero or less disables the upper bound.
func ValidateFileSize(size, max int64) error {
	if size <= 0 {
		return apperr.Validation("CV file is empty")
	}
	if max > 0 && size > max {
		return apperr.Validation(fmt.Sprintf("CV file exceeds maximum size of %d bytes", max))
	}
	return nil
}
