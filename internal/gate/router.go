package gate

import (
	"fmt"

	"edge_gate/internal/action"
	"edge_gate/internal/check"
	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/utils"
)

type CheckFunc func(dataType.UserRequest, *config.RuleSet, *action.Decision, *dataType.SharedMemory)

// Observer is told about every decision the router makes
type Observer interface {
	Observe(decision *action.Decision, reqData dataType.UserRequest)
}

// Router runs the check chain for one request at a time. It holds no
// per-request state and is safe for concurrent use.
type Router struct {
	ruleSet   *config.RuleSet
	sharedMem *dataType.SharedMemory
	checks    []CheckFunc
	observers []Observer
}

func NewRouter(ruleSet *config.RuleSet, sharedMem *dataType.SharedMemory, observers ...Observer) *Router {
	checkFuncs := make([]CheckFunc, 0, 2)
	checkFuncs = append(checkFuncs, check.IPWhitelist)
	checkFuncs = append(checkFuncs, check.HostRedirect)

	return &Router{
		ruleSet:   ruleSet,
		sharedMem: sharedMem,
		checks:    checkFuncs,
		observers: observers,
	}
}

// Route decides what happens to req: pass it on, redirect it, deny it or
// rewrite it to the fallback page. A nil request yields a 500 decision.
func (rt *Router) Route(req *dataType.EdgeRequest) *action.Decision {
	decision := action.NewDecision()

	if req == nil {
		decision.SetServerError()
		reqData := dataType.NewUserRequest(nil, "")
		utils.LogError(reqData, "MALFORMED_REQUEST", "Route")
		rt.notify(decision, reqData)
		return decision
	}

	reqData := dataType.NewUserRequest(req, resolveClientIP(req))

	for _, checkFunc := range rt.checks {
		checkFunc(reqData, rt.ruleSet, decision, rt.sharedMem)
		if decision.State == action.Done {
			break
		}
	}

	if decision.Get() == action.Undecided {
		decision.SetPassThrough(req)
	}
	rt.notify(decision, reqData)
	return decision
}

func (rt *Router) notify(decision *action.Decision, reqData dataType.UserRequest) {
	for _, o := range rt.observers {
		o.Observe(decision, reqData)
	}
}

// resolveClientIP turns any fault in address resolution into "", which the
// whitelist never matches
func resolveClientIP(req *dataType.EdgeRequest) (ip string) {
	defer func() {
		if r := recover(); r != nil {
			utils.LogError(dataType.NewUserRequest(req, ""), "RESOLVE_PANIC", fmt.Sprintf("%v", r))
			ip = ""
		}
	}()
	return check.ResolveClientIP(req)
}
