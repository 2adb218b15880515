package metrics

import "expvar"

// 控制台运行计数，通过 /debug/vars 暴露
var (
	ReconcileRuns   = expvar.NewInt("console_reconcile_runs")
	ChannelsOpened  = expvar.NewInt("console_channels_opened")
	ChannelsClosed  = expvar.NewInt("console_channels_closed")
	PushUpdates     = expvar.NewInt("console_push_updates")
	StaleResults    = expvar.NewInt("console_stale_results")
	RESTFailures    = expvar.NewInt("console_rest_failures")
	Notifications   = expvar.NewInt("console_notifications")
	PendingRequests = expvar.NewInt("console_pending_requests")
)
