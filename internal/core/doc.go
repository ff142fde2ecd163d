// Package core wires the donation flow together, independent of any
// transport. Web handlers and tests drive it through [Service].
//
// # Flow
//
//  1. [Service.Upload] takes a slot from the [UploadLimiter], reads at most
//     MaxFileSize bytes and decodes them into a workbook. Decode failures
//     wrap workbook.ErrCannotLoad and end the request.
//  2. The selected profile's parser extracts every configured sheet and the
//     profile's validator gates the result. An invalid result is returned
//     with its parsing errors so the caller can offer a retry.
//  3. A valid result opens a review session (package review) where rows can
//     be deselected and deleted. The parser output itself is never modified.
//  4. [Service.Donate] turns the session into a donation package, archives
//     it when a store is configured and closes the session.
//     [Service.Decline] closes the session without a package.
//
// # Maintenance
//
// [Service.StartMaintenance] sweeps expired sessions and purges archived
// donations past their retention. [Service.Template] renders a blank
// workbook for a profile so its layout can be checked against a real
// export.
//
// # Error Handling
//
// Technical errors are mapped to coded user messages by [MapError]:
//
//   - FILE001-FILE005: size, unreadable workbook, missing or empty file
//   - UPL002-UPL005: busy, cancelled, timed out
//   - SES001-SES002: expired session, unknown sheet
//   - PRF001: unknown profile
//   - REQ001: malformed form or JSON body
//   - DON001-DON002: donation archive failure, missing archived donation
//
// Missing or unparseable sheets are not errors. They travel in the parse
// result's ParsingErrors.
package core
