package kvvfs

import "github.com/VictoriaMetrics/metrics"

var (
	blockReads    = metrics.NewCounter("kvvfs_block_reads_total")
	blockWrites   = metrics.NewCounter("kvvfs_block_writes_total")
	blockDeletes  = metrics.NewCounter("kvvfs_block_deletes_total")
	rmwMerges     = metrics.NewCounter("kvvfs_rmw_merges_total")
	lockConflicts = metrics.NewCounter("kvvfs_lock_conflicts_total")
	guardOverruns = metrics.NewCounter("kvvfs_guard_overruns_total")
	openFailures  = metrics.NewCounter("kvvfs_open_failures_total")
)
