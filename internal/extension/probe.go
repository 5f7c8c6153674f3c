package extension

import (
	"context"

	"partybox/internal/host"
	"partybox/pkg/logging"
)

// runProbe performs the one-shot startup connectivity check. It is
// launched as a detached goroutine: activation neither waits on it nor
// observes its outcome. Transport-level failures are logged and
// swallowed; a reported-but-not-thrown failure surfaces as a single
// dismissible warning with a link to the troubleshooting docs.
func (c *Coordinator) runProbe(hctx *host.ExtensionContext, client ProtocolClient) {
	result, err := client.TestConnection(context.Background())
	if err != nil {
		logging.Error("Probe", err, "Connectivity probe failed")
		return
	}

	if result.Success {
		logging.Info("Probe", "Party Box reachable in %s: %s", result.Latency, result.Message)
		return
	}

	logging.Warn("Probe", "Party Box unreachable: %s", result.Message)
	hctx.NotifyWarn(
		"The Party Box backend appears to be unreachable. "+result.Message,
		&host.Action{
			Title: "Open troubleshooting docs",
			Run: func() {
				// Fire-and-forget; a failed browser launch is not
				// worth a second notification.
				go func() {
					if err := hctx.OpenExternal(troubleshootingURL); err != nil {
						logging.Debug("Probe", "Failed to open docs: %v", err)
					}
				}()
			},
		},
	)
}
