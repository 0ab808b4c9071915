package services

import (
	"errors"
	"net/http"

	"transporter-dashboard/internal/apiclient"
)

// serverErrors is the rule key matching every 5xx status
const serverErrors = 500

// errorRules maps a backend status to the domain message for that failure
type errorRules map[int]func(err error) string

func message(s string) func(error) string {
	return func(error) string { return s }
}

// backendOr prefers the backend's own message, e.g. the 400 body text
func backendOr(fallback string) func(error) string {
	return func(err error) string {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != http.StatusText(apiErr.Status) {
			return apiErr.Message
		}
		return fallback
	}
}

// apply refines err with the rule for its status. Errors with no matching rule pass through.
func (r errorRules) apply(err error) error {
	if err == nil {
		return nil
	}
	status := apiclient.StatusOf(err)
	if status >= 500 {
		status = serverErrors
	}
	if rule, ok := r[status]; ok && status != 0 {
		return apiclient.Refine(err, rule(err))
	}
	return err
}
