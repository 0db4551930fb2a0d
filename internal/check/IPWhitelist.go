package check

import (
	"fmt"

	"edge_gate/internal/action"
	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/utils"
)

func IPWhitelist(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision, sharedMem *dataType.SharedMemory) {
	if ruleSet.Mode == dataType.ModeDisabled || ruleSet.Mode == "" {
		decision.Set(action.Continue)
		return
	}

	if ruleSet.Whitelist.IsWhitelisted(reqData.RemoteIP) {
		decision.Set(action.Continue)
		return
	}

	var denied int64
	if sharedMem != nil && sharedMem.DenyCounter != nil {
		denied = sharedMem.DenyCounter.Add(reqData.RemoteIP, 1)
	}

	msg := "WHITELIST_DENY"
	switch ruleSet.Mode {
	case dataType.ModeRewrite:
		msg = "WHITELIST_REWRITE"
		decision.SetRewrite(reqData.Request, ruleSet.FallbackPage)
	default:
		decision.SetDeny(action.DenyBody)
	}
	utils.LogInfo(reqData, msg, fmt.Sprintf("recent_denials=%d", denied))
}
