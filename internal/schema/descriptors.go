package schema

import "regexp"

// Record kind names accepted by Validate.
const (
	KindTask         = "task"
	KindWorker       = "worker"
	KindJournalEntry = "journal_entry"
	KindAuditReport  = "audit_report"
)

// Closed tag sets shared with the ledger and registry packages. The gate
// owns the canonical lists; the typed enums elsewhere mirror them.
var (
	TaskStatuses   = []string{"pending", "in_progress", "blocked", "completed", "failed"}
	WorkerStatuses = []string{"idle", "active", "blocked", "retired"}
	Priorities     = []string{"critical", "high", "medium", "low"}
)

var (
	taskIDPattern   = regexp.MustCompile(`^SHARD-\d{3}-[A-Z]+$`)
	workerIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	auditIDPattern  = regexp.MustCompile(`^AUDIT-\d{8}-[A-Z0-9]+$`)
	commitPattern   = regexp.MustCompile(`^[a-f0-9]{7,40}$`)
)

var descriptors = map[string]Descriptor{
	KindTask: {
		Kind: KindTask,
		Fields: []Field{
			{Name: "task_id", Type: typeString, Required: true, Pattern: taskIDPattern},
			{Name: "title", Type: typeString, Required: true, MinLen: 5, MaxLen: 200},
			{Name: "description", Type: typeString},
			{Name: "status", Type: typeString, Required: true, Enum: TaskStatuses},
			{Name: "owner", Type: typeString, Pattern: workerIDPattern},
			{Name: "contributors", Type: typeStringList},
			{Name: "priority", Type: typeString, Required: true, Enum: Priorities},
			{Name: "requires", Type: typeString},
			{Name: "dependencies", Type: typeStringList},
			{Name: "complexity", Type: typeInt, Required: true, Bounded: true, Min: 1, Max: 10},
			{Name: "clearance", Type: typeInt, Required: true, Bounded: true, Min: 1, Max: 5},
			{Name: "created_at", Type: typeTime, Required: true},
			{Name: "target_completion", Type: typeTime},
		},
	},
	KindWorker: {
		Kind: KindWorker,
		Fields: []Field{
			{Name: "worker_id", Type: typeString, Required: true, Pattern: workerIDPattern},
			{Name: "name", Type: typeString, Required: true},
			{Name: "role", Type: typeString, Required: true},
			{Name: "capabilities", Type: typeStringList},
			{Name: "status", Type: typeString, Required: true, Enum: WorkerStatuses},
			{Name: "parent", Type: typeString, Pattern: workerIDPattern},
			{Name: "clearance", Type: typeInt, Required: true, Bounded: true, Min: 1, Max: 5},
		},
	},
	KindJournalEntry: {
		Kind: KindJournalEntry,
		Fields: []Field{
			{Name: "task_id", Type: typeString, Required: true, Pattern: taskIDPattern},
			{Name: "status", Type: typeString, Required: true, Enum: TaskStatuses},
			{Name: "owner", Type: typeString, Pattern: workerIDPattern},
			{Name: "contributors", Type: typeStringList},
			{Name: "summary", Type: typeString, MaxLen: 5000},
			{Name: "last_sync", Type: typeTime, Required: true},
			{Name: "commit_ref", Type: typeString, Pattern: commitPattern},
			{Name: "clearance", Type: typeInt, Required: true, Bounded: true, Min: 1, Max: 5},
		},
	},
	KindAuditReport: {
		Kind: KindAuditReport,
		Fields: []Field{
			{Name: "audit_id", Type: typeString, Required: true, Pattern: auditIDPattern},
			{Name: "target", Type: typeString, Required: true},
			{Name: "score", Type: typeFloat, Required: true, Bounded: true, Min: 0, Max: 100},
			{Name: "coverage", Type: typeFloat, Bounded: true, Min: 0, Max: 100},
			{Name: "clearance", Type: typeInt, Required: true, Bounded: true, Min: 1, Max: 5},
		},
	},
}
