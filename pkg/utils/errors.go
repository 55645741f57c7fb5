package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrTransport         = errors.New("transport failure")            // Network/render failure for a single document
	ErrDriverUnavailable = errors.New("rendering driver unavailable") // No browser could be acquired; fatal for the run
	ErrLedgerUnavailable = errors.New("ledger unavailable")           // Combine requested before both halves exist
	ErrMalformedInput    = errors.New("malformed input")              // Seed table missing required column/URL
	ErrParsing           = errors.New("parsing error")                // Wraps specific parsing error (HTML, URL, JSON, CSV)
	ErrFilesystem        = errors.New("filesystem error")             // Wraps os errors
	ErrConfigValidation  = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrTransport):
		// The cause is usually stringified into the message, so match on
		// the full error text rather than the unwrap chain.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
			return "Transport_Timeout"
		}
		if strings.Contains(msg, "connection refused") {
			return "Transport_ConnectionRefused"
		}
		if strings.Contains(msg, "no such host") {
			return "Transport_DNSLookup"
		}
		return "Transport_Other"
	case errors.Is(err, ErrDriverUnavailable):
		return "Driver_Unavailable"
	case errors.Is(err, ErrLedgerUnavailable):
		return "Ledger_Unavailable"
	case errors.Is(err, ErrMalformedInput):
		return "Input_Malformed"
	case errors.Is(err, ErrParsing):
		msg := err.Error()
		if strings.Contains(msg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(msg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(msg, "JSON") {
			return "Content_ParsingJSON"
		}
		if strings.Contains(msg, "CSV") {
			return "Content_ParsingCSV"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}

	return "Unknown"
}
