package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type scannerDeviceKey struct{}

// ScannerDevice parses the scanning client's User-Agent into a compact device
// description and injects it into the request context. Access events record it
// alongside the scanner location for audit troubleshooting.
func ScannerDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		desc := describeDevice(r.Header.Get("User-Agent"))
		ctx := context.WithValue(r.Context(), scannerDeviceKey{}, desc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetScannerDevice retrieves the parsed device description from the context.
func GetScannerDevice(ctx context.Context) string {
	if d, ok := ctx.Value(scannerDeviceKey{}).(string); ok {
		return d
	}
	return ""
}

func describeDevice(uaHeader string) string {
	if uaHeader == "" {
		return ""
	}
	ua := useragent.New(uaHeader)
	name, version := ua.Browser()

	parts := make([]string, 0, 3)
	if ua.Platform() != "" {
		parts = append(parts, ua.Platform())
	}
	if ua.OS() != "" {
		parts = append(parts, ua.OS())
	}
	if name != "" {
		if version != "" {
			parts = append(parts, name+"/"+version)
		} else {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		// Dedicated scanner firmware often sends a bare product token.
		return uaHeader
	}
	return strings.Join(parts, " ")
}
