// CLAUDE:SUMMARY Blocks configured resource types (images, fonts, media, stylesheets) on recording tabs.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases maps config names to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// resourceFilter is the set of CDP resource types a tab refuses to load.
// Recording only needs the DOM, so heavy assets can go.
type resourceFilter map[proto.NetworkResourceType]bool

// newResourceFilter accepts both config names ("images") and raw CDP types
// ("XHR", "Ping"), case-insensitively.
func newResourceFilter(names []string) resourceFilter {
	f := make(resourceFilter, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if t, ok := resourceAliases[n]; ok {
			f[t] = true
			continue
		}
		f[proto.NetworkResourceType(n)] = true
	}
	return f
}

func (f resourceFilter) blocks(t proto.NetworkResourceType) bool {
	return f[t] || f[proto.NetworkResourceType(strings.ToLower(string(t)))]
}

// hijack installs f on page. The returned router must be stopped when the
// tab closes.
func (f resourceFilter) hijack(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if f.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
