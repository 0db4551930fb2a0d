package check

import (
	"net"
	"strings"

	"edge_gate/internal/dataType"
)

// ResolveClientIP picks the address the whitelist is evaluated against:
// the first forwarded-for entry, then the viewer address, then "".
func ResolveClientIP(req *dataType.EdgeRequest) string {
	if req == nil {
		return ""
	}
	if fwd := strings.TrimSpace(req.ForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if viewer := strings.TrimSpace(req.ViewerAddress); viewer != "" {
		if host, _, err := net.SplitHostPort(viewer); err == nil {
			return host
		}
		return viewer
	}
	return ""
}
