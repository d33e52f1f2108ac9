package main

import (
	"sjrako-backend/cmd/sjrako-cli/commands"
	"sjrako-backend/lib/osutil"
	"sjrako-backend/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()
	telemetry.InitSlog(true)
	if err := telemetry.SetupFromEnv(ctx, "sjrako-cli"); err == nil {
		telemetry.InstrumentPerfStats(ctx)
	}
	commands.ExecuteContext(ctx)
}
