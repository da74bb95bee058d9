// Package pipeline orchestrates one scoring run end to end: repository
// acquisition, history inspection, static analysis, AI review, risk
// detection, deployment checks, and final scoring, with progress broadcast
// after every stage transition.
package pipeline

// Stage is one named step of the fixed forward-only sequence.
type Stage string

// Stages in strict forward order. failed is an absorbing state reachable
// from any point.
const (
	StageQueued            Stage = "queued"
	StageAcquiringRepo     Stage = "acquiring_repo"
	StageInspectingHistory Stage = "inspecting_history"
	StageStaticAnalysis    Stage = "static_analysis"
	StagePreparingAIInput  Stage = "preparing_ai_input"
	StageAIReview          Stage = "ai_review"
	StageRiskDetection     Stage = "risk_detection"
	StageDeploymentCheck   Stage = "deployment_check"
	StageScoring           Stage = "scoring"
	StageCompleted         Stage = "completed"
	StageFailed            Stage = "failed"
)

// stagePercent is the fixed broadcast progress for each stage.
var stagePercent = map[Stage]int{
	StageQueued:            0,
	StageAcquiringRepo:     10,
	StageInspectingHistory: 20,
	StageStaticAnalysis:    40,
	StagePreparingAIInput:  50,
	StageAIReview:          70,
	StageRiskDetection:     80,
	StageDeploymentCheck:   85,
	StageScoring:           90,
	StageCompleted:         100,
}

// Percent returns the fixed progress percentage for s. The failed stage
// keeps the percentage of the last stage reached, so it reports 0 here and
// the orchestrator substitutes the prior value.
func (s Stage) Percent() int {
	return stagePercent[s]
}

// Run statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
