// Package wuprotocol builds and parses the SOAP documents exchanged with the
// Windows Update client web service.
//
// Only one exchange is supported: GetExtendedUpdateInfo2 restricted to the
// FileUrl info type, which resolves an update identity to the URLs its
// package can be fetched from. The package does no network I/O.
package wuprotocol
