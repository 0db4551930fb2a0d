// Command edge is the Fastly Compute build of the gate. The configuration is
// embedded at build time since the platform has no filesystem.
package main

import (
	_ "embed"
	"log"
	"os"

	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/edge"
	"edge_gate/internal/gate"
	"edge_gate/internal/utils"

	"github.com/fastly/compute-sdk-go/fsthttp"
)

//go:embed gate.yml
var gateConfig []byte

func main() {
	cfg, err := config.ParseMainConfig(gateConfig)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}
	ruleSet, err := config.LoadRules(cfg)
	if err != nil {
		log.Fatalf("Load rules failed: %v", err)
	}

	window, err := utils.ParseWindow(cfg.DenyWindow)
	if err != nil {
		log.Fatalf("Invalid deny_window: %v", err)
	}

	utils.SetDefault(utils.NewWriterManager(os.Stdout))
	utils.LogInvalidWhitelist(ruleSet.Whitelist)
	sharedMem := &dataType.SharedMemory{DenyCounter: dataType.NewCounter(1, int64(window))}

	fsthttp.Serve(edge.NewHandler(gate.NewRouter(ruleSet, sharedMem), cfg.ForwardedForHeaders, cfg.EdgeBackend))
}
