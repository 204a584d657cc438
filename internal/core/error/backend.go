package errx

import "net/http"

// WrapBackend maps quotation backend failures (transport errors, non-2xx
// statuses) to the unified Error type. The caller-facing message stays
// generic; the underlying cause is kept for logging.
func WrapBackend(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, BackendErrorMessage)
}

// WrapAuth maps auth provider failures to the unified Error type. Every
// failure class (invalid credentials, provider error, missing session)
// surfaces the same message so authenticated flows never see a distinct
// auth error taxonomy.
func WrapAuth(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusUnauthorized, AuthErrorMessage)
}
