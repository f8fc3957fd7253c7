package models

// Stage names for the report pipeline billing dimensions.
const (
	StageIngestion    = "ingestion"
	StageEmbedding    = "embedding"
	StageGeneration   = "generation"
	StageVerification = "verification"
	StageDelivery     = "delivery"
)

// Stages returns all pipeline stages in execution order.
func Stages() []string {
	return []string{
		StageIngestion,
		StageEmbedding,
		StageGeneration,
		StageVerification,
		StageDelivery,
	}
}

// KnownStage reports whether name is a recognized pipeline stage.
func KnownStage(name string) bool {
	switch name {
	case StageIngestion, StageEmbedding, StageGeneration, StageVerification, StageDelivery:
		return true
	}
	return false
}
