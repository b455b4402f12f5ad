// Package entity defines the tracker domain model: the entity kinds the
// shape detector can assign and the typed records the materializer builds
// from decoded store data.
package entity

// Kind identifies one entity shape. Values double as signature-table keys
// and as count labels in reports.
type Kind string

const (
	KindIssue           Kind = "issue"
	KindUser            Kind = "user"
	KindTeam            Kind = "team"
	KindWorkflowState   Kind = "workflowState"
	KindComment         Kind = "comment"
	KindProject         Kind = "project"
	KindProjectStatus   Kind = "projectStatus"
	KindLabel           Kind = "label"
	KindInitiative      Kind = "initiative"
	KindCycle           Kind = "cycle"
	KindDocument        Kind = "document"
	KindMilestone       Kind = "milestone"
	KindProjectUpdate   Kind = "projectUpdate"
	KindIssueContent    Kind = "issueContent"
	KindDocumentContent Kind = "documentContent"

	// KindUnknown is the result for records no signature matches exactly
	// once. It is never materialized.
	KindUnknown Kind = "unknown"
)

// MaterializedKinds lists the kinds the materializer turns into typed
// entities, in stable report order. Content kinds classify but carry
// payloads the query surface never reads, so they are counted and dropped.
var MaterializedKinds = []Kind{
	KindIssue,
	KindUser,
	KindTeam,
	KindWorkflowState,
	KindComment,
	KindProject,
	KindProjectStatus,
	KindLabel,
	KindInitiative,
	KindCycle,
	KindDocument,
	KindMilestone,
	KindProjectUpdate,
}
