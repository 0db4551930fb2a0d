package check

import (
	"strings"

	"edge_gate/internal/action"
	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/utils"
)

func HostRedirect(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision, sharedMem *dataType.SharedMemory) {
	req := reqData.Request
	if req.Host != ruleSet.RootDomain {
		decision.Set(action.Continue)
		return
	}
	decision.SetRedirect(RedirectLocation(ruleSet.FrontendDomain, req))
	utils.LogDebug(reqData, "ROOT_REDIRECT", decision.Location)
}

// RedirectLocation builds https://<frontend><uri>[?query] for req
func RedirectLocation(frontendDomain string, req *dataType.EdgeRequest) string {
	uri := req.Uri
	if uri == "" {
		uri = "/"
	}
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(frontendDomain)
	b.WriteString(uri)
	if qs := utils.EncodeQuery(req.Query); qs != "" {
		b.WriteByte('?')
		b.WriteString(qs)
	}
	return b.String()
}
