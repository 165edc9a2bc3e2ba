package internaldefs

import (
	"github.com/MrEthical07/kvauth"
)

// CounterDef names one adapter counter.
type CounterDef struct {
	ID   kvauth.MetricID
	Name string
	Help string
}

// HistogramDef names one adapter histogram.
type HistogramDef struct {
	ID   kvauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: kvauth.MetricUserCreated, Name: "kvauth_user_created_total", Help: "Users created."},
	{ID: kvauth.MetricUserUpdated, Name: "kvauth_user_updated_total", Help: "Users updated."},
	{ID: kvauth.MetricUserDeleted, Name: "kvauth_user_deleted_total", Help: "Users deleted with a complete cascade."},
	{ID: kvauth.MetricAccountLinked, Name: "kvauth_account_linked_total", Help: "Accounts linked."},
	{ID: kvauth.MetricAccountUnlinked, Name: "kvauth_account_unlinked_total", Help: "Accounts unlinked."},
	{ID: kvauth.MetricSessionCreated, Name: "kvauth_session_created_total", Help: "Sessions created."},
	{ID: kvauth.MetricSessionUpdated, Name: "kvauth_session_updated_total", Help: "Sessions updated."},
	{ID: kvauth.MetricSessionDeleted, Name: "kvauth_session_deleted_total", Help: "Sessions deleted."},
	{ID: kvauth.MetricVerificationTokenCreated, Name: "kvauth_verification_token_created_total", Help: "Verification tokens issued."},
	{ID: kvauth.MetricVerificationTokenUsed, Name: "kvauth_verification_token_used_total", Help: "Verification tokens consumed."},
	{ID: kvauth.MetricVerificationTokenMissing, Name: "kvauth_verification_token_missing_total", Help: "Use attempts on absent verification tokens."},
	{ID: kvauth.MetricLookupMiss, Name: "kvauth_lookup_miss_total", Help: "Lookups that found no record."},
	{ID: kvauth.MetricDanglingIndex, Name: "kvauth_dangling_index_total", Help: "Index entries pointing at a missing record."},
	{ID: kvauth.MetricCascadeIncomplete, Name: "kvauth_cascade_incomplete_total", Help: "User delete cascades that stopped part way."},
	{ID: kvauth.MetricCascadeRetried, Name: "kvauth_cascade_retried_total", Help: "User delete cascade retry rounds."},
	{ID: kvauth.MetricStoreError, Name: "kvauth_store_error_total", Help: "Operations failed by the key-value store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: kvauth.MetricOperationLatency, Name: "kvauth_operation_latency_seconds", Help: "Adapter operation latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "kvauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds are the upper bounds of the latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe spellings of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
