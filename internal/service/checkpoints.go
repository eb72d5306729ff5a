package service

// Stage is a named pipeline checkpoint.
type Stage string

const (
	StageStarted         Stage = "started"
	StageTreeListed      Stage = "tree_listed"
	StageContentsFetched Stage = "contents_fetched"
	StageEmbedded        Stage = "embedded"
	StageSelected        Stage = "selected"
	StageContextBuilt    Stage = "context_built"
	StageGenerated       Stage = "generated"
	StageCompleted       Stage = "completed"
)

// stageOrder is the only place progress percentages are defined.
// Percentages must strictly increase down the list.
var stageOrder = []struct {
	stage   Stage
	percent float64
}{
	{StageStarted, 10},
	{StageTreeListed, 20},
	{StageContentsFetched, 40},
	{StageEmbedded, 55},
	{StageSelected, 65},
	{StageContextBuilt, 70},
	{StageGenerated, 95},
	{StageCompleted, 100},
}

// Progress returns the percentage reported when stage is reached.
func (s Stage) Progress() float64 {
	for _, st := range stageOrder {
		if st.stage == s {
			return st.percent
		}
	}
	return 0
}

// ProgressFunc receives each checkpoint as the pipeline passes it.
type ProgressFunc func(stage Stage) error
