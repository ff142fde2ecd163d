package core

// error_messages.go maps technical errors to coded, user-facing messages.
//
// # Error Codes Reference
//
// Users quote the code to support staff; support looks it up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum size limit
//	          Action: Export fewer categories or compress the workbook
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Cannot load workbook: The file could not be read as a spreadsheet
//	          Action: Upload the .xlsx file exactly as you received it
//	          Patterns: "cannot load workbook"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select your data export file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload the complete export file
//	          Patterns: "empty file"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	         Patterns: "too many concurrent uploads"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Patterns: "context deadline exceeded"
//
// # Review Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Review session not found
//	         Patterns: "review session not found"
//
//	SES002 - Unknown sheet: The sheet is not part of this upload
//	         Patterns: "unknown sheet"
//
// # Profile Errors (PRF001-PRF099)
//
//	PRF001 - Unknown profile: The requested data source is not supported
//	         Patterns: "unknown profile", "unknown validator"
//
// # Donation Errors (DON001-DON099)
//
//	DON001 - Storage failure: The donation could not be saved
//	         Patterns: "donation storage failed"
//
//	DON002 - Expired download: The archived donation is gone
//	         Patterns: "submission not found"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Malformed request: A form or JSON body could not be decoded
//	         Patterns: "invalid request body"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones. Load failures
// read "cannot load workbook: empty file", which is why FILE005 is listed
// before FILE002.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Export fewer categories or compress the workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Export fewer categories or compress the workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload the complete export file",
			Code:    "FILE005",
		},
	},
	{
		pattern: "cannot load workbook",
		msg: UserMessage{
			Message: "The file could not be read as a spreadsheet",
			Action:  "Upload the .xlsx file exactly as you received it",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select your data export file",
			Code:    "FILE004",
		},
	},

	// Upload errors
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "UPL005",
		},
	},

	// Review session errors
	{
		pattern: "review session not found",
		msg: UserMessage{
			Message: "Your review session has expired",
			Action:  "Please upload your file again",
			Code:    "SES001",
		},
	},
	{
		pattern: "unknown sheet",
		msg: UserMessage{
			Message: "That table is not part of this upload",
			Action:  "Reload the review page",
			Code:    "SES002",
		},
	},

	// Profile errors
	{
		pattern: "unknown profile",
		msg: UserMessage{
			Message: "This data source is not supported",
			Action:  "Choose one of the listed data sources",
			Code:    "PRF001",
		},
	},
	{
		pattern: "unknown validator",
		msg: UserMessage{
			Message: "This data source is not supported",
			Action:  "Choose one of the listed data sources",
			Code:    "PRF001",
		},
	},

	// Donation errors
	{
		pattern: "donation storage failed",
		msg: UserMessage{
			Message: "Your donation could not be saved",
			Action:  "Please try again in a few moments",
			Code:    "DON001",
		},
	},
	{
		pattern: "submission not found",
		msg: UserMessage{
			Message: "This donation is no longer available for download",
			Action:  "Keep the file you downloaded when donating",
			Code:    "DON002",
		},
	},

	// Request errors
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Reload the page and try again",
			Code:    "REQ001",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
